package tests

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"regexp"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	echoapi "github.com/trezcool/darasa/apps/api/echo"
	"github.com/trezcool/darasa/core/user"
	emailsvc "github.com/trezcool/darasa/services/email"
)

var resetLinkRe = regexp.MustCompile(`/password-reset/([^/\s]+)/([^/\s]+)`)

func TestUserApi_Register(t *testing.T) {
	env := setup(t)
	env.register(t, "Taken", "taken@example.com", user.RoleStudent)

	tests := []httpTest{
		{
			name:     "missing fields",
			body:     []byte(`{}`),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "password mismatch",
			body: marshalObj(t, map[string]string{
				"name": "Joe", "email": "joe@example.com", "password": pwd, "password_confirm": "nope", "role": "student",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "unknown role",
			body: marshalObj(t, map[string]string{
				"name": "Joe", "email": "joe@example.com", "password": pwd, "password_confirm": pwd, "role": "admin",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "email taken",
			body: marshalObj(t, map[string]string{
				"name": "Joe", "email": "TAKEN@example.com", "password": pwd, "password_confirm": pwd, "role": "student",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "valid",
			body: marshalObj(t, map[string]string{
				"name": "Joe", "email": "Joe@Example.com", "password": pwd, "password_confirm": pwd, "role": "teacher",
			}),
			wantCode: http.StatusCreated,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/v1/users/register", "", tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	usr, err := env.usrRepo.GetUserByEmail(bgCtx, "joe@example.com")
	require.NoError(t, err)
	assert.Equal(t, user.RoleTeacher, usr.Role)
}

func TestUserApi_Login(t *testing.T) {
	env := setup(t)
	usr := env.register(t, "Ann", "ann@example.com", user.RoleStudent)

	tests := []httpTest{
		{
			name:     "unknown email",
			body:     marshalObj(t, map[string]string{"email": "bob@example.com", "password": pwd}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: user.ErrInvalidCredentials.Error()}),
		},
		{
			name:     "wrong password",
			body:     marshalObj(t, map[string]string{"email": "ann@example.com", "password": "wrong"}),
			wantCode: http.StatusBadRequest,
			wantData: marshalObj(t, httpErr{Error: user.ErrInvalidCredentials.Error()}),
		},
		{
			name:     "case-insensitive email",
			body:     marshalObj(t, map[string]string{"email": " ANN@example.com ", "password": pwd}),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := env.do(http.MethodPost, "/v1/users/login", "", tt.body)
			checkCodeAndData(t, tt, rec)
		})
	}

	t.Run("sets session cookie", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/users/login", "", marshalObj(t, map[string]string{
			"email": "ann@example.com", "password": pwd,
		}))
		require.Equal(t, http.StatusOK, rec.Code)

		var resp echoapi.LoginResponse
		decode(t, rec, &resp)
		require.NotNil(t, resp.User)
		assert.Equal(t, usr.ID, resp.User.ID)

		cookies := rec.Result().Cookies()
		require.Len(t, cookies, 1)
		assert.Equal(t, resp.Token, cookies[0].Value)
		assert.True(t, cookies[0].HttpOnly)

		// the cookie alone authenticates
		req := httptest.NewRequest(http.MethodGet, "/v1/users/me", nil)
		req.AddCookie(cookies[0])
		meRec := httptest.NewRecorder()
		env.app.ServeHTTP(meRec, req)
		assert.Equal(t, http.StatusOK, meRec.Code)
	})
}

func TestUserApi_Me(t *testing.T) {
	env := setup(t)
	env.register(t, "Ann", "ann@example.com", user.RoleStudent)
	env.register(t, "Bob", "bob@example.com", user.RoleStudent)
	token := env.login(t, "ann@example.com")

	t.Run("anonymous", func(t *testing.T) {
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized, wantData: marshalObj(t, errUnauthenticated)},
			env.do(http.MethodGet, "/v1/users/me", ""))
	})

	t.Run("bad token", func(t *testing.T) {
		checkCodeAndData(t, httpTest{wantCode: http.StatusUnauthorized},
			env.do(http.MethodGet, "/v1/users/me", "not-a-jwt"))
	})

	t.Run("update profile", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/v1/users/me", token, marshalObj(t, map[string]string{
			"name": "Annie", "email": "ann@example.com", "bio": "hello",
		}))
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var usr user.User
		decode(t, rec, &usr)
		assert.Equal(t, "Annie", usr.Name)
		assert.Equal(t, "hello", usr.Bio)
	})

	t.Run("update profile with taken email", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/v1/users/me", token, marshalObj(t, map[string]string{
			"name": "Annie", "email": "bob@example.com",
		}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("change password", func(t *testing.T) {
		rec := env.do(http.MethodPut, "/v1/users/me/password", token, marshalObj(t, map[string]string{
			"current_password": "wrong", "password": "N3wS3cret!!", "password_confirm": "N3wS3cret!!",
		}))
		assert.Equal(t, http.StatusBadRequest, rec.Code)

		rec = env.do(http.MethodPut, "/v1/users/me/password", token, marshalObj(t, map[string]string{
			"current_password": pwd, "password": "N3wS3cret!!", "password_confirm": "N3wS3cret!!",
		}))
		assert.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

		rec = env.do(http.MethodPost, "/v1/users/login", "", marshalObj(t, map[string]string{
			"email": "ann@example.com", "password": "N3wS3cret!!",
		}))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestUserApi_Logout(t *testing.T) {
	env := setup(t)
	rec := env.do(http.MethodPost, "/v1/users/logout", "")
	require.Equal(t, http.StatusOK, rec.Code)

	cookies := rec.Result().Cookies()
	require.Len(t, cookies, 1)
	assert.Empty(t, cookies[0].Value)
	assert.True(t, cookies[0].MaxAge < 0)
}

func TestUserApi_PasswordReset(t *testing.T) {
	env := setup(t)
	env.register(t, "Ann", "ann@example.com", user.RoleStudent)

	t.Run("unknown email answers the same", func(t *testing.T) {
		rec := env.do(http.MethodPost, "/v1/users/password-reset", "", marshalObj(t, map[string]string{"email": "nobody@example.com"}))
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Empty(t, emailsvc.SentTo("nobody@example.com"))
	})

	rec := env.do(http.MethodPost, "/v1/users/password-reset", "", marshalObj(t, map[string]string{"email": "ann@example.com"}))
	require.Equal(t, http.StatusOK, rec.Code)

	msgs := emailsvc.SentTo("ann@example.com")
	require.Len(t, msgs, 1)
	m := resetLinkRe.FindStringSubmatch(msgs[0].TextContent)
	require.Len(t, m, 3)
	uid, token := m[1], m[2]

	tests := []httpTest{
		{
			name: "bad token",
			body: marshalObj(t, map[string]string{
				"uid": uid, "token": "bad-token", "password": "N3wS3cret!!", "password_confirm": "N3wS3cret!!",
			}),
			wantCode: http.StatusBadRequest,
		},
		{
			name: "valid",
			body: marshalObj(t, map[string]string{
				"uid": uid, "token": token, "password": "N3wS3cret!!", "password_confirm": "N3wS3cret!!",
			}),
			wantCode: http.StatusOK,
		},
		{
			name: "token is single use",
			body: marshalObj(t, map[string]string{
				"uid": uid, "token": token, "password": "An0therS3cret", "password_confirm": "An0therS3cret",
			}),
			wantCode: http.StatusBadRequest,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			checkCodeAndData(t, tt, env.do(http.MethodPost, "/v1/users/password-reset-confirm", "", tt.body))
		})
	}

	rec = env.do(http.MethodPost, "/v1/users/login", "", marshalObj(t, map[string]string{
		"email": "ann@example.com", "password": "N3wS3cret!!",
	}))
	assert.Equal(t, http.StatusOK, rec.Code)
}

func TestUserApi_Avatar(t *testing.T) {
	env := setup(t)
	usr := env.register(t, "Ann", "ann@example.com", user.RoleStudent)
	token := env.login(t, "ann@example.com")

	png := append([]byte("\x89PNG\r\n\x1a\n\x00\x00\x00\rIHDR"), bytes.Repeat([]byte{0}, 64)...)

	t.Run("too large", func(t *testing.T) {
		big := append(append([]byte{}, png...), bytes.Repeat([]byte{0}, 2<<20)...)
		rec := env.upload(t, "/v1/users/me/avatar", token, nil, "avatar", "me.png", big)
		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})

	t.Run("not an image", func(t *testing.T) {
		rec := env.upload(t, "/v1/users/me/avatar", token, nil, "avatar", "me.png", []byte("just some text"))
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("missing file", func(t *testing.T) {
		rec := env.upload(t, "/v1/users/me/avatar", token, map[string]string{"x": "y"}, "", "", nil)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("valid", func(t *testing.T) {
		rec := env.upload(t, "/v1/users/me/avatar", token, nil, "avatar", "me.png", png)
		require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
		var got user.User
		decode(t, rec, &got)
		assert.NotEmpty(t, got.Avatar)

		fileRec := env.do(http.MethodGet, "/v1/users/"+itoa(usr.ID)+"/avatar", token)
		require.Equal(t, http.StatusOK, fileRec.Code)
		assert.Equal(t, png, fileRec.Body.Bytes())
		assert.Equal(t, "image/png", fileRec.Header().Get("Content-Type"))
	})
}
