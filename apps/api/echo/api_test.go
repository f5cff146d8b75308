package echoapi

import (
	"archive/zip"
	"bytes"
	"encoding/json"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	"github.com/trezcool/risiti/core"
	"github.com/trezcool/risiti/core/docx"
	"github.com/trezcool/risiti/core/receipt"
	"github.com/trezcool/risiti/core/user"
	emailsvc "github.com/trezcool/risiti/services/email"
	filesvc "github.com/trezcool/risiti/services/storage"
	inmemdb "github.com/trezcool/risiti/storage/database/inmem"
	testutil "github.com/trezcool/risiti/tests"
)

type testApp struct {
	conf    *core.Config
	server  Server
	usrSvc  *user.Service
	usrRepo user.Repository
	rcptSvc *receipt.Service
}

func setup(t *testing.T) *testApp {
	t.Helper()

	conf := testutil.NewConfig()
	logger := testutil.Logger{}
	core.ParseEmailTemplates(conf, logger)

	validate := validator.New()
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	core.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	db := inmemdb.NewDB()
	usrRepo := inmemdb.NewUserRepository(db)
	usrSvc := user.NewService(usrRepo, logger)
	rcptSvc := receipt.NewService(
		inmemdb.NewReceiptRepository(db),
		filesvc.NewMemStore(),
		docx.NewRenderer(),
		usrSvc,
		emailsvc.NewConsoleServiceMock(conf),
		logger,
	)

	server := NewServer(ServerDeps{
		Conf:       conf,
		Logger:     logger,
		UserSvc:    usrSvc,
		ReceiptSvc: rcptSvc,
		Validate:   validate,
		Translator: translator,
	})
	return &testApp{conf: conf, server: server, usrSvc: usrSvc, usrRepo: usrRepo, rcptSvc: rcptSvc}
}

func (app *testApp) token(t *testing.T, usr user.User) string {
	t.Helper()
	token, err := GenerateToken(app.conf, GetUserClaims(app.conf, usr))
	if err != nil {
		t.Fatalf("GenerateToken() failed: %v", err)
	}
	return token
}

func (app *testApp) request(method, path, token string, body []byte, contentType ...string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(method, path, bytes.NewReader(body))
	ct := echoJSON
	if len(contentType) > 0 {
		ct = contentType[0]
	}
	req.Header.Set("Content-Type", ct)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rec := httptest.NewRecorder()
	app.server.ServeHTTP(rec, req)
	return rec
}

const echoJSON = "application/json"

func buildTemplate(t *testing.T) []byte {
	t.Helper()

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	if err != nil {
		t.Fatalf("building template: %v", err)
	}
	_, _ = w.Write([]byte(`<w:t>Receipt {{receipt_no}} for {{name}}</w:t>`))
	if err = zw.Close(); err != nil {
		t.Fatalf("building template: %v", err)
	}
	return buf.Bytes()
}

func buildGenerateForm(t *testing.T, tpl, sheet []byte) ([]byte, string) {
	t.Helper()

	var buf bytes.Buffer
	mw := multipart.NewWriter(&buf)
	w, err := mw.CreateFormFile("template", "template.docx")
	if err != nil {
		t.Fatalf("building form: %v", err)
	}
	_, _ = w.Write(tpl)
	w, err = mw.CreateFormFile("datasheet", "fees.csv")
	if err != nil {
		t.Fatalf("building form: %v", err)
	}
	_, _ = w.Write(sheet)
	if err = mw.Close(); err != nil {
		t.Fatalf("building form: %v", err)
	}
	return buf.Bytes(), mw.FormDataContentType()
}

var testSheet = []byte(strings.Join(receipt.RequiredFields, ",") + "\n" +
	"Asha Rao,12/05/2024,OPEN,fifteen thousand,SE Computer,12000,1000,800,700,500,15000,State Bank,PO-778,asha@example.com,EN-001\n")

func Test_userApi_login(t *testing.T) {
	app := setup(t)
	testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@test.cd", "S3cr3t+pwd", user.AdminRoles, true)

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{name: "valid credentials", body: `{"username": "admin", "password": "S3cr3t+pwd"}`, wantCode: http.StatusOK},
		{name: "login with email", body: `{"username": "admin@test.cd", "password": "S3cr3t+pwd"}`, wantCode: http.StatusOK},
		{name: "wrong password", body: `{"username": "admin", "password": "nope"}`, wantCode: http.StatusBadRequest},
		{name: "unknown user", body: `{"username": "ghost", "password": "nope"}`, wantCode: http.StatusBadRequest},
		{name: "missing fields", body: `{}`, wantCode: http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := app.request(http.MethodPost, "/v1/users/login", "", []byte(tt.body))
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %d, want %d; body %s", rec.Code, tt.wantCode, rec.Body)
			}
			if tt.wantCode == http.StatusOK {
				var resp LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil || resp.Token == "" {
					t.Errorf("expected a token, got %s", rec.Body)
				}
			}
		})
	}
}

func Test_receiptApi_generate(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@test.cd", "S3cr3t+pwd", user.AdminRoles, true)
	adminToken := app.token(t, admin)

	form, ct := buildGenerateForm(t, buildTemplate(t), testSheet)

	t.Run("requires authentication", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/v1/receipts/generate", "", form, ct)
		if rec.Code != http.StatusUnauthorized {
			t.Errorf("code = %d, want 401", rec.Code)
		}
	})

	t.Run("admin generates a batch", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/v1/receipts/generate", adminToken, form, ct)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, body %s", rec.Code, rec.Body)
		}
		var report receipt.BatchReport
		if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil {
			t.Fatalf("unmarshalling report: %v", err)
		}
		if report.Attempted != 1 || report.Succeeded != 1 {
			t.Errorf("report = %+v", report)
		}
	})

	t.Run("missing files", func(t *testing.T) {
		var buf bytes.Buffer
		mw := multipart.NewWriter(&buf)
		_ = mw.Close()
		rec := app.request(http.MethodPost, "/v1/receipts/generate", adminToken, buf.Bytes(), mw.FormDataContentType())
		if rec.Code != http.StatusBadRequest {
			t.Errorf("code = %d, want 400; body %s", rec.Code, rec.Body)
		}
	})

	t.Run("students may not generate", func(t *testing.T) {
		student := testutil.CreateUser(t, app.usrRepo, "Student", "stud", "stud@test.cd", "S3cr3t+pwd", user.StudentRoles, true)
		rec := app.request(http.MethodPost, "/v1/receipts/generate", app.token(t, student), form, ct)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %d, want 403", rec.Code)
		}
	})
}

func Test_receiptApi_studentFlow(t *testing.T) {
	app := setup(t)
	admin := testutil.CreateUser(t, app.usrRepo, "Admin", "admin", "admin@test.cd", "S3cr3t+pwd", user.AdminRoles, true)
	adminToken := app.token(t, admin)

	form, ct := buildGenerateForm(t, buildTemplate(t), testSheet)
	if rec := app.request(http.MethodPost, "/v1/receipts/generate", adminToken, form, ct); rec.Code != http.StatusOK {
		t.Fatalf("generate failed: %d %s", rec.Code, rec.Body)
	}

	// the batch provisioned an account for asha@example.com
	student, err := app.usrSvc.GetByEmail("asha@example.com")
	if err != nil {
		t.Fatalf("GetByEmail() failed: %v", err)
	}
	studentToken := app.token(t, student)

	var rcpts []receipt.Receipt
	t.Run("admin lists all receipts", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/receipts", adminToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, body %s", rec.Code, rec.Body)
		}
		if err := json.Unmarshal(rec.Body.Bytes(), &rcpts); err != nil || len(rcpts) != 1 {
			t.Fatalf("body = %s", rec.Body)
		}
	})

	t.Run("student lists their receipts", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/receipts/mine", studentToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, body %s", rec.Code, rec.Body)
		}
		var mine []receipt.Receipt
		if err := json.Unmarshal(rec.Body.Bytes(), &mine); err != nil || len(mine) != 1 {
			t.Fatalf("body = %s", rec.Body)
		}
	})

	t.Run("student may not list all", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/receipts", studentToken, nil)
		if rec.Code != http.StatusForbidden {
			t.Errorf("code = %d, want 403", rec.Code)
		}
	})

	t.Run("owner downloads their document", func(t *testing.T) {
		rec := app.request(http.MethodGet, "/v1/receipts/"+rcpts[0].ID+"/download", studentToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, body %s", rec.Code, rec.Body)
		}
		if rec.Body.Len() == 0 {
			t.Error("expected document bytes")
		}
		if cd := rec.Header().Get("Content-Disposition"); !strings.Contains(cd, ".docx") {
			t.Errorf("Content-Disposition = %q", cd)
		}
	})

	t.Run("strangers get a 404", func(t *testing.T) {
		other := testutil.CreateUser(t, app.usrRepo, "Other", "other", "other@test.cd", "S3cr3t+pwd", user.StudentRoles, true)
		rec := app.request(http.MethodGet, "/v1/receipts/"+rcpts[0].ID+"/download", app.token(t, other), nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %d, want 404", rec.Code)
		}
	})

	t.Run("admin sends notices", func(t *testing.T) {
		rec := app.request(http.MethodPost, "/v1/receipts/send", adminToken, nil)
		if rec.Code != http.StatusOK {
			t.Fatalf("code = %d, body %s", rec.Code, rec.Body)
		}
		var report SendReport
		if err := json.Unmarshal(rec.Body.Bytes(), &report); err != nil || report.Sent != 1 {
			t.Errorf("body = %s", rec.Body)
		}
	})

	t.Run("admin deletes a receipt", func(t *testing.T) {
		rec := app.request(http.MethodDelete, "/v1/receipts/"+rcpts[0].ID, adminToken, nil)
		if rec.Code != http.StatusNoContent {
			t.Fatalf("code = %d, body %s", rec.Code, rec.Body)
		}
		rec = app.request(http.MethodDelete, "/v1/receipts/"+rcpts[0].ID, adminToken, nil)
		if rec.Code != http.StatusNotFound {
			t.Errorf("code = %d, want 404", rec.Code)
		}
	})
}
