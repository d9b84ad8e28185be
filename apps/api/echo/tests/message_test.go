package tests

import (
	"context"
	"net/http"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	. "github.com/trezcool/elimu/apps/api/echo"
	"github.com/trezcool/elimu/core/message"
	"github.com/trezcool/elimu/core/user"
	"github.com/trezcool/elimu/tests"
)

func Test_messageApi(t *testing.T) {
	srv, svcs := setup(t)
	f := newCourseFixture(t, svcs)
	bob := testutil.CreateUser(t, svcs.UserRepo, "Bob", "bob_student", "bob@test.cd", "", []string{user.RoleStudent}, true)

	_, err := svcs.Enrollments.Enroll(context.Background(), f.student.ID, f.crs.ID, "")
	require.NoError(t, err)
	_, err = svcs.Enrollments.Enroll(context.Background(), bob.ID, f.crs.ID, "")
	require.NoError(t, err)

	adminToken := getToken(t, srv, f.admin)
	studentToken := getToken(t, srv, f.student)
	svcs.Mail.Reset()

	runHTTPTests(t, srv, []httpTest{
		{
			name: "admins only", method: http.MethodPost, path: "/v1/messages", token: getToken(t, srv, f.instructor),
			body: marchallObj(t, message.NewMessage{RecipientID: f.student.ID, Subject: "Hi", Body: "Hello"}), wantCode: http.StatusForbidden,
		},
		{
			name: "unknown recipient", method: http.MethodPost, path: "/v1/messages", token: adminToken,
			body:     marchallObj(t, message.NewMessage{RecipientID: "unknown", Subject: "Hi", Body: "Hello"}),
			wantCode: http.StatusBadRequest, wantData: marchallObj(t, map[string]string{"recipient_id": user.ErrNotFound.Error()}),
		},
		{
			name: "blank body", method: http.MethodPost, path: "/v1/messages", token: adminToken,
			body: marchallObj(t, message.NewMessage{RecipientID: f.student.ID, Subject: "Hi", Body: "  "}), wantCode: http.StatusBadRequest,
		},
		{
			name: "broadcast to unknown course", method: http.MethodPost, path: "/v1/courses/unknown/messages", token: adminToken,
			body: marchallObj(t, message.NewBroadcast{Subject: "Hi", Body: "Hello"}), wantCode: http.StatusNotFound,
		},
		{name: "empty inbox", path: "/v1/messages", token: studentToken, wantCode: http.StatusOK, wantData: marchallList(t)},
	})
	assert.Empty(t, svcs.Mail.SentMessages())

	rec := do(srv, http.MethodPost, "/v1/messages", adminToken, marchallObj(t, message.NewMessage{
		RecipientID: f.student.ID,
		Subject:     "Welcome",
		Body:        "Glad to have you.",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var direct message.Message
	unmarshal(t, rec, &direct)
	assert.Equal(t, f.admin.ID, direct.SenderID)
	assert.False(t, direct.ReadAt.Valid)

	rec = do(srv, http.MethodPost, "/v1/courses/"+f.crs.ID+"/messages", adminToken, marchallObj(t, message.NewBroadcast{
		Subject: "Live session",
		Body:    "See you on Friday.",
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	checkCodeAndData(t, httpTest{wantCode: http.StatusCreated, wantData: marchallObj(t, BroadcastResponse{Sent: 2})}, rec)

	msgs := svcs.Mail.SentMessages()
	require.Len(t, msgs, 3)
	assert.Equal(t, "New message: Welcome", msgs[0].Subject)

	t.Run("inbox", func(t *testing.T) {
		rec := do(srv, http.MethodGet, "/v1/messages", studentToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var inbox []message.Message
		unmarshal(t, rec, &inbox)
		require.Len(t, inbox, 2)
		for _, m := range inbox {
			assert.Equal(t, f.student.ID, m.RecipientID)
		}
	})

	t.Run("mark read", func(t *testing.T) {
		rec := do(srv, http.MethodPost, "/v1/messages/"+direct.ID+"/read", getToken(t, srv, bob))
		assert.Equal(t, http.StatusNotFound, rec.Code)

		rec = do(srv, http.MethodPost, "/v1/messages/"+direct.ID+"/read", studentToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var msg message.Message
		unmarshal(t, rec, &msg)
		assert.True(t, msg.ReadAt.Valid)

		rec = do(srv, http.MethodGet, "/v1/messages?unread=true", studentToken)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var unread []message.Message
		unmarshal(t, rec, &unread)
		require.Len(t, unread, 1)
		assert.Equal(t, "Live session", unread[0].Subject)
		assert.Equal(t, f.crs.ID, unread[0].CourseID.String)
	})
}
