package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"reflect"
	"strconv"
	"testing"

	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core"
	"github.com/trezcool/darasa/core/assignment"
	"github.com/trezcool/darasa/core/calendar"
	"github.com/trezcool/darasa/core/chat"
	"github.com/trezcool/darasa/core/course"
	"github.com/trezcool/darasa/core/progress"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
	dummydb "github.com/trezcool/darasa/storage/database/dummy"
	"github.com/trezcool/darasa/storage/files"
	testutil "github.com/trezcool/darasa/tests"
)

const pwd = "Sup3rS3cret!"

var bgCtx = context.Background()

var errUnauthenticated = httpErr{Error: "user not authenticated"}

type testEnv struct {
	app     echoapi.Server
	usrRepo user.Repository
	crsRepo course.Repository
	asgRepo assignment.Repository
}

// setup wires the whole API on in-memory repositories and a temp dir file store.
func setup(t *testing.T) *testEnv {
	conf := core.NewTestConfig()
	logger := testutil.NewLogger(conf)
	testutil.LoadEmailTemplates(logger)
	emailsvc.ResetSentMessages()
	validate, translator := testutil.NewValidator()

	store, err := files.NewLocalStorage(t.TempDir())
	require.NoError(t, err)

	db := dummydb.Open()
	env := &testEnv{
		usrRepo: dummydb.NewUserRepository(db),
		crsRepo: dummydb.NewCourseRepository(db),
		asgRepo: dummydb.NewAssignmentRepository(db),
	}

	mailSvc := emailsvc.NewConsoleServiceMock(conf, logger)
	courseSvc := course.NewService(env.crsRepo)
	assignmentSvc := assignment.NewService(env.asgRepo)

	env.app = echoapi.NewServer(&echoapi.Options{
		Conf:          conf,
		Logger:        logger,
		Validate:      validate,
		Translator:    translator,
		Files:         store,
		UserSvc:       user.NewService(env.usrRepo, mailSvc, conf),
		CourseSvc:     courseSvc,
		AssignmentSvc: assignmentSvc,
		ProgressSvc:   progress.NewService(dummydb.NewProgressRepository(db)),
		CalendarSvc:   calendar.NewService(dummydb.NewCalendarRepository(db), courseSvc, assignmentSvc, mailSvc),
		ChatSvc:       chat.NewService(dummydb.NewChatRepository(db)),
	})
	return env
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	path     string
	body     []byte
	token    string
	wantCode int
	wantData []byte
}

func newAuthRequest(method, path, token string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	var body bytes.Buffer
	if len(data) > 0 {
		body.Write(data[0])
	}
	req := httptest.NewRequest(method, path, &body)
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	return req, rec
}

// do sends a JSON request and returns the recorder.
func (env *testEnv) do(method, path, token string, data ...[]byte) *httptest.ResponseRecorder {
	req, rec := newAuthRequest(method, path, token, data...)
	env.app.ServeHTTP(rec, req)
	return rec
}

// upload sends a multipart request with the given fields and one file.
func (env *testEnv) upload(t *testing.T, path, token string, fields map[string]string, fileField, filename string, content []byte) *httptest.ResponseRecorder {
	var body bytes.Buffer
	w := multipart.NewWriter(&body)
	for k, v := range fields {
		require.NoError(t, w.WriteField(k, v))
	}
	if fileField != "" {
		fw, err := w.CreateFormFile(fileField, filename)
		require.NoError(t, err)
		_, err = fw.Write(content)
		require.NoError(t, err)
	}
	require.NoError(t, w.Close())

	req := httptest.NewRequest(http.MethodPost, path, &body)
	req.Header.Set("Content-Type", w.FormDataContentType())
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	env.app.ServeHTTP(rec, req)
	return rec
}

// register signs a user up through the API.
func (env *testEnv) register(t *testing.T, name, email string, role user.Role) user.User {
	rec := env.do(http.MethodPost, "/v1/users/register", "", marshalObj(t, map[string]string{
		"name": name, "email": email, "password": pwd, "password_confirm": pwd, "role": string(role),
	}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var usr user.User
	decode(t, rec, &usr)
	return usr
}

// login returns the bearer token of a registered user.
func (env *testEnv) login(t *testing.T, email string) string {
	rec := env.do(http.MethodPost, "/v1/users/login", "", marshalObj(t, map[string]string{
		"email": email, "password": pwd,
	}))
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	var resp echoapi.LoginResponse
	decode(t, rec, &resp)
	require.NotEmpty(t, resp.Token)
	return resp.Token
}

func (env *testEnv) createCourse(t *testing.T, token, title string) course.Course {
	rec := env.do(http.MethodPost, "/v1/courses", token, marshalObj(t, map[string]string{"title": title}))
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
	var c course.Course
	decode(t, rec, &c)
	return c
}

func (env *testEnv) enroll(t *testing.T, token string, courseID int) *httptest.ResponseRecorder {
	return env.do(http.MethodPost, "/v1/enrollments", token, marshalObj(t, map[string]int{"course_id": courseID}))
}

func itoa(i int) string { return strconv.Itoa(i) }

func coursePath(id int, rest string) string { return "/v1/courses/" + itoa(id) + rest }

func assignmentPath(id int, rest string) string { return "/v1/assignments/" + itoa(id) + rest }

func eventPath(id int, rest string) string { return "/v1/calendar/events/" + itoa(id) + rest }

func decode(t *testing.T, rec *httptest.ResponseRecorder, v interface{}) {
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), v), rec.Body.String())
}

func marshalObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marshalObj(): %v", err)
	}
	return data
}

func jsonBytesEqual(b1, b2 []byte) (bool, error) {
	var j1, j2 interface{}
	if err := json.Unmarshal(b1, &j1); err != nil {
		return false, err
	}
	if err := json.Unmarshal(b2, &j2); err != nil {
		return false, err
	}
	return reflect.DeepEqual(j1, j2), nil
}

func checkCodeAndData(t *testing.T, tt httpTest, rec *httptest.ResponseRecorder) {
	if rec.Code != tt.wantCode {
		t.Errorf("failed! code = %v; wantCode %v", rec.Code, tt.wantCode)
	}
	if tt.wantData == nil {
		return
	}
	ok, err := jsonBytesEqual(rec.Body.Bytes(), tt.wantData)
	if err != nil {
		t.Errorf("jsonBytesEqual() failed to compare; err %v", err)
	}
	if !ok {
		t.Errorf("failed! data = %v; wantData %v", rec.Body.String(), string(tt.wantData))
	}
}
