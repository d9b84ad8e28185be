package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/trezcool/elimu/core/course"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/tests"
)

type courseFixture struct {
	admin      user.User
	instructor user.User
	other      user.User // another instructor
	student    user.User

	crs   course.Course // published
	draft course.Course
	ch    course.Chapter
	video course.ContentUnit
	text  course.ContentUnit
	quiz  course.Quiz
}

func newCourseFixture(t *testing.T, svcs *testutil.Services) courseFixture {
	t.Helper()
	ctx := context.Background()

	var f courseFixture
	f.admin = testutil.CreateUser(t, svcs.UserRepo, "Admin", "admin_user", "admin@test.cd", "", []string{user.RoleAdmin}, true)
	f.instructor = testutil.CreateUser(t, svcs.UserRepo, "Teacher", "teacher_one", "teacher@test.cd", "", []string{user.RoleInstructor}, true)
	f.other = testutil.CreateUser(t, svcs.UserRepo, "Other", "teacher_two", "other@test.cd", "", []string{user.RoleInstructor}, true)
	f.student = testutil.CreateUser(t, svcs.UserRepo, "Jane", "jane_student", "jane@test.cd", "", []string{user.RoleStudent}, true)

	var err error
	f.crs, err = svcs.Courses.CreateCourse(ctx, f.instructor, course.NewCourse{
		Title:       "Go 101",
		Price:       decimal.NewFromInt(100),
		IsPublished: true,
	})
	require.NoError(t, err)
	f.draft, err = svcs.Courses.CreateCourse(ctx, f.instructor, course.NewCourse{Title: "Advanced Go", Price: decimal.NewFromInt(200)})
	require.NoError(t, err)

	f.ch, err = svcs.Courses.AddChapter(ctx, f.instructor, f.crs.ID, course.NewChapter{Title: "Basics"})
	require.NoError(t, err)
	f.video, err = svcs.Courses.AddContentUnit(ctx, f.instructor, f.crs.ID, course.NewContentUnit{
		ChapterID: f.ch.ID,
		Kind:      course.KindVideo,
		Title:     "Intro",
		VideoURL:  "https://videos.test/intro.mp4",
	})
	require.NoError(t, err)
	f.text, err = svcs.Courses.AddContentUnit(ctx, f.instructor, f.crs.ID, course.NewContentUnit{
		ChapterID: f.ch.ID,
		Kind:      course.KindText,
		Title:     "Reading",
		Position:  1,
		Body:      "Go is simple.",
	})
	require.NoError(t, err)
	f.quiz, err = svcs.Courses.CreateQuiz(ctx, f.instructor, f.crs.ID, course.NewQuiz{
		Title: "Check",
		Questions: []course.Question{
			{Prompt: "1 + 1?", Options: []string{"1", "2"}, CorrectOption: 1},
			{Prompt: "Go is?", Options: []string{"compiled", "interpreted"}, CorrectOption: 0},
		},
	})
	require.NoError(t, err)
	return f
}

func Test_courseApi_query(t *testing.T) {
	srv, svcs := setup(t)
	f := newCourseFixture(t, svcs)

	runHTTPTests(t, srv, []httpTest{
		{name: "auth required", path: "/v1/courses", wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken)},
		{name: "students only see published", path: "/v1/courses", token: getToken(t, srv, f.student), wantCode: http.StatusOK, wantData: marchallList(t, f.crs)},
		{
			name: "other instructors only see published", path: "/v1/courses?instructor_id=" + f.instructor.ID, token: getToken(t, srv, f.other),
			wantCode: http.StatusOK, wantData: marchallList(t, f.crs),
		},
		{
			name: "instructor sees own drafts", path: "/v1/courses?ordering=title&instructor_id=" + f.instructor.ID, token: getToken(t, srv, f.instructor),
			wantCode: http.StatusOK, wantData: marchallList(t, f.draft, f.crs),
		},
		{name: "admin sees all", path: "/v1/courses?ordering=-title", token: getToken(t, srv, f.admin), wantCode: http.StatusOK, wantData: marchallList(t, f.crs, f.draft)},
		{name: "search", path: "/v1/courses?search=ADV", token: getToken(t, srv, f.admin), wantCode: http.StatusOK, wantData: marchallList(t, f.draft)},
	})
}

func Test_courseApi_create(t *testing.T) {
	srv, svcs := setup(t)
	f := newCourseFixture(t, svcs)

	newCourse := func(title, price string) []byte {
		return []byte(`{"title": "` + title + `", "price": "` + price + `", "is_published": true}`)
	}

	runHTTPTests(t, srv, []httpTest{
		{
			name: "students cannot create", method: http.MethodPost, path: "/v1/courses", token: getToken(t, srv, f.student),
			body: newCourse("Rust 101", "10"), wantCode: http.StatusForbidden, wantData: marchallObj(t, httpErr{Error: "permission denied"}),
		},
		{
			name: "blank title", method: http.MethodPost, path: "/v1/courses", token: getToken(t, srv, f.instructor),
			body: newCourse("   ", "10"), wantCode: http.StatusBadRequest,
		},
		{
			name: "negative price", method: http.MethodPost, path: "/v1/courses", token: getToken(t, srv, f.instructor),
			body: newCourse("Rust 101", "-1"), wantCode: http.StatusBadRequest,
		},
	})

	rec := do(srv, http.MethodPost, "/v1/courses", getToken(t, srv, f.instructor), newCourse("Rust 101", "19.999"))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var crs course.Course
	unmarshal(t, rec, &crs)
	assert.Equal(t, "Rust 101", crs.Title)
	assert.Equal(t, f.instructor.ID, crs.InstructorID)
	assert.Equal(t, "20", crs.Price.String())
}

func Test_courseApi_detail(t *testing.T) {
	srv, svcs := setup(t)
	f := newCourseFixture(t, svcs)

	studentToken := getToken(t, srv, f.student)
	instructorToken := getToken(t, srv, f.instructor)
	otherToken := getToken(t, srv, f.other)

	runHTTPTests(t, srv, []httpTest{
		{name: "published", path: "/v1/courses/" + f.crs.ID, token: studentToken, wantCode: http.StatusOK, wantData: marchallObj(t, f.crs)},
		{name: "draft hidden", path: "/v1/courses/" + f.draft.ID, token: studentToken, wantCode: http.StatusNotFound},
		{name: "draft to owner", path: "/v1/courses/" + f.draft.ID, token: instructorToken, wantCode: http.StatusOK, wantData: marchallObj(t, f.draft)},
		{name: "unknown", path: "/v1/courses/unknown", token: studentToken, wantCode: http.StatusNotFound},
		{
			name: "chapters", path: "/v1/courses/" + f.crs.ID + "/chapters", token: studentToken,
			wantCode: http.StatusOK, wantData: marchallList(t, f.ch),
		},
		{
			name: "units", path: "/v1/courses/" + f.crs.ID + "/units", token: studentToken,
			wantCode: http.StatusOK, wantData: marchallList(t, f.video, f.text),
		},
		{
			name: "update by another instructor", method: http.MethodPut, path: "/v1/courses/" + f.crs.ID, token: otherToken,
			body: []byte(`{"title": "Hijacked"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "delete by another instructor", method: http.MethodDelete, path: "/v1/courses/" + f.crs.ID, token: otherToken,
			wantCode: http.StatusForbidden,
		},
		{
			name: "student adds a chapter", method: http.MethodPost, path: "/v1/courses/" + f.crs.ID + "/chapters", token: studentToken,
			body: []byte(`{"title": "Extra"}`), wantCode: http.StatusForbidden,
		},
		{
			name: "unit of another course's chapter", method: http.MethodPost, path: "/v1/courses/" + f.draft.ID + "/units", token: instructorToken,
			body:     []byte(`{"chapter_id": "` + f.ch.ID + `", "kind": "text", "title": "Misplaced", "body": "..."}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "video unit without url", method: http.MethodPost, path: "/v1/courses/" + f.crs.ID + "/units", token: instructorToken,
			body:     []byte(`{"chapter_id": "` + f.ch.ID + `", "kind": "video", "title": "No URL"}`),
			wantCode: http.StatusBadRequest,
		},
	})

	t.Run("update", func(t *testing.T) {
		rec := do(srv, http.MethodPut, "/v1/courses/"+f.draft.ID, instructorToken, []byte(`{"is_published": true}`))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		var crs course.Course
		unmarshal(t, rec, &crs)
		assert.True(t, crs.IsPublished)
		assert.Equal(t, f.draft.Title, crs.Title)
	})

	t.Run("add chapter & unit", func(t *testing.T) {
		rec := do(srv, http.MethodPost, "/v1/courses/"+f.crs.ID+"/chapters", instructorToken, []byte(`{"title": "Advanced", "position": 1}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var ch course.Chapter
		unmarshal(t, rec, &ch)

		rec = do(srv, http.MethodPost, "/v1/courses/"+f.crs.ID+"/units", instructorToken,
			[]byte(`{"chapter_id": "`+ch.ID+`", "kind": "VIDEO", "title": "Goroutines", "video_url": "https://videos.test/go.mp4", "duration_seconds": 600}`))
		require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
		var unit course.ContentUnit
		unmarshal(t, rec, &unit)
		assert.Equal(t, course.KindVideo, unit.Kind)
		assert.Equal(t, f.crs.ID, unit.CourseID)
	})

	t.Run("delete", func(t *testing.T) {
		rec := do(srv, http.MethodDelete, "/v1/courses/"+f.draft.ID, getToken(t, srv, f.admin))
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = do(srv, http.MethodGet, "/v1/courses/"+f.draft.ID, instructorToken)
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})
}

func Test_courseApi_quizzes(t *testing.T) {
	srv, svcs := setup(t)
	f := newCourseFixture(t, svcs)

	path := "/v1/courses/" + f.crs.ID + "/quizzes/" + f.quiz.ID
	runHTTPTests(t, srv, []httpTest{
		{name: "students get no answers", path: path, token: getToken(t, srv, f.student), wantCode: http.StatusOK, wantData: marchallObj(t, f.quiz.Public())},
		{name: "owner gets answers", path: path, token: getToken(t, srv, f.instructor), wantCode: http.StatusOK, wantData: marchallObj(t, f.quiz)},
		{name: "wrong course", path: "/v1/courses/" + f.draft.ID + "/quizzes/" + f.quiz.ID, token: getToken(t, srv, f.instructor), wantCode: http.StatusNotFound},
		{
			name: "correct option out of range", method: http.MethodPost, path: "/v1/courses/" + f.crs.ID + "/quizzes", token: getToken(t, srv, f.instructor),
			body:     []byte(`{"title": "Bad", "questions": [{"prompt": "?", "options": ["a", "b"], "correct_option": 2}]}`),
			wantCode: http.StatusBadRequest,
		},
	})

	rec := do(srv, http.MethodPost, "/v1/courses/"+f.crs.ID+"/quizzes", getToken(t, srv, f.instructor),
		[]byte(`{"title": "Final", "questions": [{"prompt": "Pick b", "options": ["a", "b"], "correct_option": 1}]}`))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())

	var quiz course.Quiz
	unmarshal(t, rec, &quiz)
	assert.Equal(t, 70, quiz.PassingScore)
	assert.Equal(t, 50, quiz.XPReward)
	require.Len(t, quiz.Questions, 1)
	assert.NotEmpty(t, quiz.Questions[0].ID)
}

func Test_courseApi_stats(t *testing.T) {
	srv, svcs := setup(t)
	f := newCourseFixture(t, svcs)

	_, err := svcs.Enrollments.Enroll(context.Background(), f.student.ID, f.crs.ID, "")
	require.NoError(t, err)

	runHTTPTests(t, srv, []httpTest{
		{name: "students cannot", path: "/v1/courses/stats", token: getToken(t, srv, f.student), wantCode: http.StatusForbidden},
		{
			name: "instructor", path: "/v1/courses/stats", token: getToken(t, srv, f.instructor), wantCode: http.StatusOK,
			wantData: marchallObj(t, course.Stats{CoursesCount: 2, StudentsCount: 1}),
		},
		{
			name: "admin for an instructor", path: "/v1/courses/stats?instructor_id=" + f.other.ID, token: getToken(t, srv, f.admin), wantCode: http.StatusOK,
			wantData: marchallObj(t, course.Stats{}),
		},
	})
}
