package tests

import (
	"context"
	"net/http"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/liveclass"
)

func Test_liveClassApi(t *testing.T) {
	srv, svcs := setup(t)
	f := newCourseFixture(t, svcs)

	_, err := svcs.Enrollments.Enroll(context.Background(), f.student.ID, f.crs.ID, "")
	require.NoError(t, err)

	instructorToken := getToken(t, srv, f.instructor)
	studentToken := getToken(t, srv, f.student)
	path := "/v1/courses/" + f.crs.ID + "/live-classes"
	startsAt := time.Now().Add(48 * time.Hour).UTC().Truncate(time.Second)

	newClass := func(title string, at time.Time, minutes int) []byte {
		return marchallObj(t, liveclass.NewLiveClass{Title: title, StartsAt: at, DurationMinutes: minutes})
	}

	runHTTPTests(t, srv, []httpTest{
		{name: "students cannot schedule", method: http.MethodPost, path: path, token: studentToken, body: newClass("Q&A", startsAt, 60), wantCode: http.StatusForbidden},
		{
			name: "another instructor", method: http.MethodPost, path: path, token: getToken(t, srv, f.other),
			body: newClass("Q&A", startsAt, 60), wantCode: http.StatusForbidden,
		},
		{name: "in the past", method: http.MethodPost, path: path, token: instructorToken, body: newClass("Q&A", time.Now().Add(-time.Hour), 60), wantCode: http.StatusBadRequest},
		{name: "no duration", method: http.MethodPost, path: path, token: instructorToken, body: newClass("Q&A", startsAt, 0), wantCode: http.StatusBadRequest},
		{
			name: "unknown course", method: http.MethodPost, path: "/v1/courses/unknown/live-classes", token: instructorToken,
			body: newClass("Q&A", startsAt, 60), wantCode: http.StatusNotFound,
		},
		{name: "none scheduled", path: path, token: studentToken, wantCode: http.StatusOK, wantData: marchallList(t)},
	})

	rec := do(srv, http.MethodPost, path, instructorToken, newClass("Q&A", startsAt, 60))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var lc liveclass.LiveClass
	unmarshal(t, rec, &lc)
	assert.Equal(t, f.instructor.ID, lc.InstructorID)
	assert.True(t, startsAt.Equal(lc.StartsAt))
	assert.Equal(t, svcs.Conf.FrontendBaseURL+"/live/"+lc.ProviderMeetingID, lc.JoinURL)

	runHTTPTests(t, srv, []httpTest{
		{name: "upcoming", path: path, token: studentToken, wantCode: http.StatusOK, wantData: marchallList(t, lc)},
		{name: "students cannot cancel", method: http.MethodDelete, path: "/v1/live-classes/" + lc.ID, token: studentToken, wantCode: http.StatusForbidden},
		{name: "cancel unknown", method: http.MethodDelete, path: "/v1/live-classes/unknown", token: instructorToken, wantCode: http.StatusNotFound},
		{name: "cancel", method: http.MethodDelete, path: "/v1/live-classes/" + lc.ID, token: instructorToken, wantCode: http.StatusNoContent},
		{name: "cancelled", path: path, token: studentToken, wantCode: http.StatusOK, wantData: marchallList(t)},
	})
}
