package core_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core"
)

type recordingLogger struct {
	errors []string
}

func (l *recordingLogger) Debug(string, ...interface{}) {}
func (l *recordingLogger) Info(string, ...interface{})  {}
func (l *recordingLogger) Warn(string, ...interface{})  {}
func (l *recordingLogger) Fatal(msg string, _ ...interface{}) {
	l.errors = append(l.errors, msg)
}
func (l *recordingLogger) Error(msg string, _ ...interface{}) {
	l.errors = append(l.errors, msg)
}

func TestParseEmailTemplates(t *testing.T) {
	logger := new(recordingLogger)
	core.ParseEmailTemplates(logger)
	require.Empty(t, logger.errors)

	data := map[string]interface{}{
		"Name":            "John Smith",
		"Subject":         "Welcome",
		"Body":            "See you in class.",
		"CourseTitle":     "Go 101",
		"XP":              100,
		"Level":           2,
		"Title":           "Office hours",
		"StartsAt":        "2021-03-01 10:00 UTC",
		"DurationMinutes": 45,
		"JoinURL":         "https://meet.test/abc",
		"UID":             "dWlk",
		"Token":           "tok-en",
	}

	tests := []struct {
		template string
		wantText string
	}{
		{template: "password_reset", wantText: "https://elimu.test/password-reset/dWlk/tok-en"},
		{template: "course_completed", wantText: `You completed "Go 101" and earned 100 XP`},
		{template: "admin_message", wantText: "See you in class."},
		{template: "live_class_reminder", wantText: "Join here: https://meet.test/abc"},
	}
	for _, tt := range tests {
		t.Run(tt.template, func(t *testing.T) {
			msg := &core.EmailMessage{Subject: "subject", TemplateName: tt.template, TemplateData: data}
			require.NoError(t, msg.Render("https://elimu.test"))

			assert.True(t, msg.HasContent())
			assert.Contains(t, msg.TextContent, tt.wantText)
			assert.Contains(t, msg.TextContent, "The Elimu team", "base layout")
			assert.NotEmpty(t, msg.HTMLContent, fmt.Sprintf("%s.gohtml", tt.template))
		})
	}
}
