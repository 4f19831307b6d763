package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/Inspirimental/addonware-web-sub000/internal/models"
)

func newResponseFixture(t *testing.T) (*ResponseService, *memStore, *mockGateway) {
	t.Helper()
	store := newMemStore()
	q := demoQuestionnaire()
	store.questionnaires[q.ID] = q
	gw := &mockGateway{}
	svc := NewResponseService(store, gw, "fallback@addonware.test")
	svc.now = func() time.Time { return fixedNow }
	return svc, store, gw
}

func validSubmission() models.SubmissionRequest {
	return models.SubmissionRequest{
		QuestionnaireSlug: "readiness",
		Name:              "Max",
		Email:             "max@example.de",
		Answers: []models.WireAnswer{
			{QuestionID: "q1", QuestionType: models.QuestionSingleChoice, Value: "o1"},
			{QuestionID: "q2", QuestionType: models.QuestionSingleChoice, Value: "o4"},
			{QuestionID: "q3", QuestionType: models.QuestionRating, Value: "4"},
		},
	}
}

func TestSubmitStoresResponseAndNotifies(t *testing.T) {
	svc, store, gw := newResponseFixture(t)
	gw.On("SendSubmissionConfirmation", mock.Anything, mock.MatchedBy(func(m SubmissionMessage) bool {
		return m.To == "max@example.de" && len(m.Lines) == 3 && m.Lines[0].Answer == "1-10" && m.Lines[2].Answer == "4 of 5"
	})).Return(nil).Once()
	gw.On("SendSubmissionNotice", mock.Anything, mock.MatchedBy(func(m SubmissionMessage) bool {
		return m.To == "team@addonware.test" && m.Email == "max@example.de"
	})).Return(nil).Once()

	res, err := svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.Equal(t, 3, res.AnswerCount)
	require.Len(t, store.responses, 1)

	r := store.responses[0]
	assert.Equal(t, res.ResponseID, r.ID)
	assert.Equal(t, "qn1", r.QuestionnaireID)
	assert.Equal(t, fixedNow, r.CreatedAt)
	assert.Equal(t, models.SingleChoice{OptionID: "o1"}, r.Answers[0].Value)
	assert.Equal(t, models.Rating{Value: 4, Max: 5}, r.Answers[2].Value)
	gw.AssertExpectations(t)
}

func TestSubmitClampsRating(t *testing.T) {
	svc, store, gw := newResponseFixture(t)
	gw.On("SendSubmissionConfirmation", mock.Anything, mock.Anything).Return(nil)
	gw.On("SendSubmissionNotice", mock.Anything, mock.Anything).Return(nil)

	req := validSubmission()
	req.Answers[2].Value = "9"
	_, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.Rating{Value: 5, Max: 5}, store.responses[0].Answers[2].Value)

	req.Answers[2].Value = "-2"
	_, err = svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.Rating{Value: 1, Max: 5}, store.responses[1].Answers[2].Value)
}

func TestSubmitClampsOverflowingRating(t *testing.T) {
	svc, store, gw := newResponseFixture(t)
	gw.On("SendSubmissionConfirmation", mock.Anything, mock.Anything).Return(nil)
	gw.On("SendSubmissionNotice", mock.Anything, mock.Anything).Return(nil)

	req := validSubmission()
	req.Answers[2].Value = "99999999999999999999"
	_, err := svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.Rating{Value: 5, Max: 5}, store.responses[0].Answers[2].Value)

	req.Answers[2].Value = "-99999999999999999999"
	_, err = svc.Submit(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, models.Rating{Value: 1, Max: 5}, store.responses[1].Answers[2].Value)

	req.Answers[2].Value = "four"
	_, err = svc.Submit(context.Background(), req)
	assert.ErrorIs(t, err, models.ErrInvalidRating)
	assert.Len(t, store.responses, 2)
}

func TestSubmitRejectsInvalidInput(t *testing.T) {
	cases := []struct {
		name   string
		mutate func(r *models.SubmissionRequest)
		want   error
	}{
		{"invalid email", func(r *models.SubmissionRequest) { r.Email = "max@example" }, ErrInvalidEmail},
		{"blank name", func(r *models.SubmissionRequest) { r.Name = " " }, ErrNameRequired},
		{"unknown questionnaire", func(r *models.SubmissionRequest) { r.QuestionnaireSlug = "nope" }, ErrQuestionnaireNotFound},
		{"type mismatch", func(r *models.SubmissionRequest) { r.Answers[0].QuestionType = models.QuestionRating }, models.ErrAnswerTypeMismatch},
		{"foreign option", func(r *models.SubmissionRequest) { r.Answers[0].Value = "o3" }, models.ErrUnknownOption},
		{"rating not a number", func(r *models.SubmissionRequest) { r.Answers[2].Value = "four" }, models.ErrInvalidRating},
		{"missing answer", func(r *models.SubmissionRequest) { r.Answers = r.Answers[:2] }, nil},
		{"duplicate answer", func(r *models.SubmissionRequest) { r.Answers = append(r.Answers, r.Answers[0]) }, nil},
		{"unknown question", func(r *models.SubmissionRequest) {
			r.Answers = append(r.Answers, models.WireAnswer{QuestionID: "q9", QuestionType: models.QuestionFreeText, Value: "x"})
		}, nil},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			svc, store, gw := newResponseFixture(t)
			req := validSubmission()
			tc.mutate(&req)
			_, err := svc.Submit(context.Background(), req)
			require.Error(t, err)
			if tc.want != nil {
				assert.ErrorIs(t, err, tc.want)
			}
			assert.Empty(t, store.responses)
			gw.AssertNotCalled(t, "SendSubmissionConfirmation", mock.Anything, mock.Anything)
		})
	}
}

func TestSubmitInactiveQuestionnaire(t *testing.T) {
	svc, store, _ := newResponseFixture(t)
	store.questionnaires["qn1"].Active = false
	_, err := svc.Submit(context.Background(), validSubmission())
	assert.ErrorIs(t, err, ErrQuestionnaireInactive)
}

func TestSubmitDoesNotDeduplicate(t *testing.T) {
	svc, store, gw := newResponseFixture(t)
	gw.On("SendSubmissionConfirmation", mock.Anything, mock.Anything).Return(nil)
	gw.On("SendSubmissionNotice", mock.Anything, mock.Anything).Return(nil)

	a, err := svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	b, err := svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.NotEqual(t, a.ResponseID, b.ResponseID)
	assert.Len(t, store.responses, 2)
}

func TestSubmitSurvivesNotificationFailure(t *testing.T) {
	svc, store, gw := newResponseFixture(t)
	gw.On("SendSubmissionConfirmation", mock.Anything, mock.Anything).Return(errors.New("smtp down"))
	gw.On("SendSubmissionNotice", mock.Anything, mock.Anything).Return(errors.New("smtp down"))

	res, err := svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	assert.NotEmpty(t, res.ResponseID)
	assert.Len(t, store.responses, 1)
}

func TestSubmitNoticeFallsBackToDefaultRecipient(t *testing.T) {
	svc, store, gw := newResponseFixture(t)
	store.questionnaires["qn1"].NotifyEmail = ""
	gw.On("SendSubmissionConfirmation", mock.Anything, mock.Anything).Return(nil)
	gw.On("SendSubmissionNotice", mock.Anything, mock.MatchedBy(func(m SubmissionMessage) bool {
		return m.To == "fallback@addonware.test"
	})).Return(nil).Once()

	_, err := svc.Submit(context.Background(), validSubmission())
	require.NoError(t, err)
	gw.AssertExpectations(t)
}

func TestSubmitStoreFailureIsReturned(t *testing.T) {
	svc, store, gw := newResponseFixture(t)
	store.insertErr = errors.New("disk full")
	_, err := svc.Submit(context.Background(), validSubmission())
	assert.Error(t, err)
	gw.AssertNotCalled(t, "SendSubmissionConfirmation", mock.Anything, mock.Anything)
}
