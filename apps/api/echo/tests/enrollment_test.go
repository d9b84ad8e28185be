package tests

import (
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core/enrollment"
	"github.com/trezcool/elimu/core/gamification"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/tests"
)

func Test_enrollmentApi_enroll(t *testing.T) {
	srv, svcs := setup(t)
	f := newCourseFixture(t, svcs)
	token := getToken(t, srv, f.student)

	runHTTPTests(t, srv, []httpTest{
		{name: "auth required", method: http.MethodPost, path: "/v1/courses/" + f.crs.ID + "/enroll", wantCode: http.StatusUnauthorized},
		{
			name: "draft course", method: http.MethodPost, path: "/v1/courses/" + f.draft.ID + "/enroll", token: token,
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "this course is not open for enrollment"}),
		},
		{name: "unknown course", method: http.MethodPost, path: "/v1/courses/unknown/enroll", token: token, wantCode: http.StatusNotFound},
		{
			name: "unknown coupon", method: http.MethodPost, path: "/v1/courses/" + f.crs.ID + "/enroll", token: token,
			body: []byte(`{"coupon_code": "NOPE"}`), wantCode: http.StatusBadRequest,
		},
		{name: "progress before enrolling", path: "/v1/courses/" + f.crs.ID + "/progress", token: token, wantCode: http.StatusForbidden},
	})

	rec := do(srv, http.MethodPost, "/v1/courses/"+f.crs.ID+"/enroll", token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var enr enrollment.Enrollment
	unmarshal(t, rec, &enr)
	assert.Equal(t, f.student.ID, enr.UserID)
	assert.Equal(t, 0, enr.Progress)
	assert.Equal(t, "100", enr.PricePaid.String())
	assert.False(t, enr.CouponCode.Valid)

	runHTTPTests(t, srv, []httpTest{
		{
			name: "twice", method: http.MethodPost, path: "/v1/courses/" + f.crs.ID + "/enroll", token: token,
			wantCode: http.StatusConflict, wantData: marchallObj(t, httpErr{Error: "already enrolled in this course"}),
		},
		{name: "list", path: "/v1/enrollments", token: token, wantCode: http.StatusOK, wantData: marchallList(t, enr)},
		{name: "list (none)", path: "/v1/enrollments", token: getToken(t, srv, f.other), wantCode: http.StatusOK, wantData: marchallList(t)},
		{
			name: "progress", path: "/v1/courses/" + f.crs.ID + "/progress", token: token,
			wantCode: http.StatusOK, wantData: marchallObj(t, ProgressResponse{CourseID: f.crs.ID, Progress: 0}),
		},
	})
}

func Test_enrollmentApi_learning(t *testing.T) {
	srv, svcs := setup(t)
	f := newCourseFixture(t, svcs)
	token := getToken(t, srv, f.student)

	rec := do(srv, http.MethodPost, "/v1/courses/"+f.crs.ID+"/enroll", token)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	svcs.Mail.Reset()

	complete := func(t *testing.T, unitID string) enrollment.Enrollment {
		rec := do(srv, http.MethodPost, "/v1/courses/"+f.crs.ID+"/units/"+unitID+"/complete", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var enr enrollment.Enrollment
		unmarshal(t, rec, &enr)
		return enr
	}

	t.Run("unit of another course", func(t *testing.T) {
		rec := do(srv, http.MethodPost, "/v1/courses/"+f.draft.ID+"/units/"+f.video.ID+"/complete", token)
		assert.Equal(t, http.StatusForbidden, rec.Code) // not enrolled in the draft
	})

	t.Run("video", func(t *testing.T) {
		enr := complete(t, f.video.ID)
		assert.Equal(t, 50, enr.Progress)
		assert.Equal(t, []string{f.video.ID}, enr.CompletedLessons)
		assert.False(t, enr.CompletedAt.Valid)

		// idempotent
		enr = complete(t, f.video.ID)
		assert.Equal(t, 50, enr.Progress)
	})

	t.Run("text completes the course", func(t *testing.T) {
		enr := complete(t, f.text.ID)
		assert.Equal(t, 100, enr.Progress)
		assert.True(t, enr.CompletedAt.Valid)
		assert.ElementsMatch(t, []string{f.video.ID, f.text.ID}, enr.CompletedLessons)

		msgs := svcs.Mail.SentMessages()
		require.Len(t, msgs, 1)
		assert.Equal(t, "You completed Go 101!", msgs[0].Subject)
	})

	t.Run("xp profile", func(t *testing.T) {
		rec := do(srv, http.MethodGet, "/v1/me/xp", token)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var prof gamification.Profile
		unmarshal(t, rec, &prof)
		assert.EqualValues(t, 115, prof.TotalXP) // 10 + 5 + 100
		assert.Equal(t, 2, prof.Level)
		assert.Equal(t, 1, prof.VideosCompleted)
		assert.Equal(t, 1, prof.CoursesCompleted)
	})

	quizPath := "/v1/quizzes/" + f.quiz.ID + "/submit"
	answers := func(first, second int) []byte {
		return marchallObj(t, enrollment.QuizAnswers{Answers: map[string]int{
			f.quiz.Questions[0].ID: first,
			f.quiz.Questions[1].ID: second,
		}})
	}

	tests := []struct {
		name          string
		token         string
		body          []byte
		wantCode      int
		wantScore     int
		wantPassed    bool
		wantFirstPass bool
		wantXP        int64
	}{
		{name: "not enrolled", token: getToken(t, srv, f.other), body: answers(1, 0), wantCode: http.StatusForbidden},
		{name: "no answers", token: token, body: []byte(`{}`), wantCode: http.StatusBadRequest},
		{name: "half right", token: token, body: answers(1, 1), wantCode: http.StatusOK, wantScore: 50},
		{name: "first pass", token: token, body: answers(1, 0), wantCode: http.StatusOK, wantScore: 100, wantPassed: true, wantFirstPass: true, wantXP: 50},
		{name: "repeat pass", token: token, body: answers(1, 0), wantCode: http.StatusOK, wantScore: 100, wantPassed: true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := do(srv, http.MethodPost, quizPath, tt.token, tt.body)
			require.Equal(t, tt.wantCode, rec.Code, rec.Body.String())
			if tt.wantCode != http.StatusOK {
				return
			}

			var sub enrollment.QuizSubmission
			unmarshal(t, rec, &sub)
			assert.Equal(t, tt.wantScore, sub.Score)
			assert.Equal(t, tt.wantPassed, sub.Passed)
			assert.Equal(t, tt.wantFirstPass, sub.FirstPass)
			assert.Equal(t, tt.wantXP, sub.XPAwarded)
			assert.Equal(t, 2, sub.Total)
		})
	}

	t.Run("leaderboard", func(t *testing.T) {
		rival := testutil.CreateUser(t, svcs.UserRepo, "Rival", "rival_student", "rival@test.cd", "", []string{user.RoleStudent}, true)
		rivalToken := getToken(t, srv, rival)
		require.Equal(t, http.StatusCreated, do(srv, http.MethodPost, "/v1/courses/"+f.crs.ID+"/enroll", rivalToken).Code)
		require.Equal(t, http.StatusOK, do(srv, http.MethodPost, "/v1/courses/"+f.crs.ID+"/units/"+f.text.ID+"/complete", rivalToken).Code)

		runHTTPTests(t, srv, []httpTest{
			{
				name: "default limit", path: "/v1/leaderboard", token: token, wantCode: http.StatusOK,
				wantData: marchallList(t,
					gamification.LeaderboardEntry{Rank: 1, UserID: f.student.ID, Username: f.student.Username, TotalXP: 165, Level: gamification.LevelForXP(165)},
					gamification.LeaderboardEntry{Rank: 2, UserID: rival.ID, Username: rival.Username, TotalXP: 5, Level: 1},
				),
			},
			{
				name: "limit=1", path: "/v1/leaderboard?limit=1", token: token, wantCode: http.StatusOK,
				wantData: marchallList(t,
					gamification.LeaderboardEntry{Rank: 1, UserID: f.student.ID, Username: f.student.Username, TotalXP: 165, Level: gamification.LevelForXP(165)},
				),
			},
		})
	})
}
