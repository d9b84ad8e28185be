package course

import (
	"testing"

	"github.com/go-playground/validator/v10"
	"github.com/stretchr/testify/assert"

	"github.com/trezcool/elimu/core"
	"github.com/trezcool/elimu/core/user"
)

func TestGradeQuiz(t *testing.T) {
	q := Quiz{
		PassingScore: 70,
		Questions: []Question{
			{ID: "q1", Options: []string{"a", "b"}, CorrectOption: 0},
			{ID: "q2", Options: []string{"a", "b"}, CorrectOption: 1},
			{ID: "q3", Options: []string{"a", "b", "c"}, CorrectOption: 2},
		},
	}

	tests := []struct {
		name    string
		quiz    Quiz
		answers map[string]int
		want    QuizResult
	}{
		{name: "no answers", quiz: q, want: QuizResult{Correct: 0, Total: 3, Score: 0}},
		{
			name: "two of three", quiz: q, answers: map[string]int{"q1": 0, "q2": 1, "q3": 0},
			want: QuizResult{Correct: 2, Total: 3, Score: 67},
		},
		{
			name: "all correct", quiz: q, answers: map[string]int{"q1": 0, "q2": 1, "q3": 2},
			want: QuizResult{Correct: 3, Total: 3, Score: 100, Passed: true},
		},
		{
			name: "unknown questions are ignored", quiz: q, answers: map[string]int{"lol": 0, "q1": 0},
			want: QuizResult{Correct: 1, Total: 3, Score: 33},
		},
		{name: "empty quiz never passes", quiz: Quiz{PassingScore: 0}, want: QuizResult{}},
		{
			name: "passing score 0", quiz: Quiz{PassingScore: 0, Questions: q.Questions[:1]},
			want: QuizResult{Total: 1, Passed: true},
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, GradeQuiz(tt.quiz, tt.answers))
		})
	}
}

func TestCourse_CanBeModifiedBy(t *testing.T) {
	c := Course{InstructorID: "owner"}

	tests := []struct {
		name string
		usr  user.User
		want bool
	}{
		{name: "owner", usr: user.User{ID: "owner", Roles: []string{user.RoleInstructor}}, want: true},
		{name: "other instructor", usr: user.User{ID: "other", Roles: []string{user.RoleInstructor}}},
		{name: "admin", usr: user.User{ID: "admin", Roles: []string{user.RoleAdmin}}, want: true},
		{name: "anonymous", usr: user.User{}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.CanBeModifiedBy(tt.usr))
		})
	}
}

func TestNewContentUnit_Validate(t *testing.T) {
	validate := validator.New()
	translator := core.NewTranslator()
	core.InitValidators(validate, translator)
	InitValidators(validate, translator)

	tests := []struct {
		name    string
		data    NewContentUnit
		wantErr bool
	}{
		{name: "unknown kind", data: NewContentUnit{ChapterID: "c", Kind: "audio", Title: "T"}, wantErr: true},
		{name: "video without url", data: NewContentUnit{ChapterID: "c", Kind: "video", Title: "T"}, wantErr: true},
		{name: "video with bad url", data: NewContentUnit{ChapterID: "c", Kind: "video", Title: "T", VideoURL: "lol"}, wantErr: true},
		{name: "text without body", data: NewContentUnit{ChapterID: "c", Kind: "text", Title: "T"}, wantErr: true},
		{name: "video", data: NewContentUnit{ChapterID: "c", Kind: " Video ", Title: "T", VideoURL: "https://cdn.test/v.mp4"}},
		{name: "text", data: NewContentUnit{ChapterID: "c", Kind: "text", Title: "T", Body: "Hello"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.data.Validate(validate)
			if tt.wantErr {
				assert.Error(t, err)
			} else {
				assert.NoError(t, err)
			}
		})
	}
}

func TestNewQuiz_Validate(t *testing.T) {
	validate := validator.New()
	core.InitValidators(validate, core.NewTranslator())

	nq := NewQuiz{
		Title:     "Basics",
		Questions: []Question{{Prompt: "1+1?", Options: []string{"1", "2"}, CorrectOption: 2}},
	}
	err := nq.Validate(validate)
	if assert.Error(t, err) {
		_, ok := err.(*core.ValidationError)
		assert.True(t, ok)
	}

	nq.Questions[0].CorrectOption = 1
	assert.NoError(t, nq.Validate(validate))
}
