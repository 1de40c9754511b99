package tests

import (
	"bytes"
	"context"
	"encoding/json"
	"log"
	"net/http"
	"net/http/httptest"
	"os"
	"reflect"
	"testing"
	"time"

	"github.com/go-playground/locales/en"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"

	echoapi "github.com/tahanan-ph/tahanan/apps/api/echo"
	"github.com/tahanan-ph/tahanan/core"
	"github.com/tahanan-ph/tahanan/core/billing"
	"github.com/tahanan-ph/tahanan/core/payment"
	"github.com/tahanan-ph/tahanan/core/room"
	"github.com/tahanan-ph/tahanan/core/tenant"
	"github.com/tahanan-ph/tahanan/core/user"
	emailsvc "github.com/tahanan-ph/tahanan/services/email"
	logsvc "github.com/tahanan-ph/tahanan/services/logger"
	dummydb "github.com/tahanan-ph/tahanan/storage/database/dummy"
)

var (
	app        echoapi.Server
	usrSvc     *user.Service
	roomSvc    *room.Service
	tenantSvc  *tenant.Service
	paymentSvc *payment.Service

	errMissingToken = httpErr{Error: "missing or malformed jwt"}
	errForbidden    = httpErr{Error: "permission denied"}
)

func TestMain(m *testing.M) {
	conf := &core.Config{
		TestMode:                  true,
		Env:                       "TEST",
		AppName:                   "Tahanan",
		SecretKey:                 "secret",
		FrontendBaseURL:           "http://localhost:5173",
		PasswordResetTimeoutDelta: 3 * 24 * time.Hour,
		Server: core.ServerConfig{
			JWTExpirationDelta:        7 * 24 * time.Hour,
			JWTRefreshExpirationDelta: 4 * time.Hour,
		},
	}

	logger := logsvc.NewRollbarLogger(log.New(os.Stdout, "TEST : ", log.LstdFlags), conf)
	logger.Enable(false)

	// set up DB & services
	db, err := dummydb.Open()
	if err != nil {
		log.Fatalf("dummydb.Open(): %v", err)
	}
	mailSvc := emailsvc.NewConsoleServiceMock(conf)
	calc := billing.NewCalculator(billing.DefaultApplianceSurcharge)
	usrSvc = user.NewService(dummydb.NewUserRepository(db), mailSvc, conf)
	roomSvc = room.NewService(dummydb.NewRoomRepository(db))
	paymentSvc = payment.NewService(dummydb.NewPaymentRepository(db), calc, nil, mailSvc, conf, logger)
	tenantSvc = tenant.NewService(dummydb.NewTenantRepository(db), roomSvc, paymentSvc)

	validate := validator.New()
	translator := newTranslator()
	core.InitValidators(validate, translator)
	room.InitValidators(validate, translator)
	user.InitValidators(validate, translator)

	core.ParseEmailTemplates(conf, logger)

	// set up server
	app = echoapi.NewServer(
		echoapi.ServerDeps{
			Conf:           conf,
			Logger:         logger,
			UserSvc:        usrSvc,
			RoomSvc:        roomSvc,
			TenantSvc:      tenantSvc,
			PaymentSvc:     paymentSvc,
			Validate:       validate,
			Translator:     translator,
			DisableReqLogs: true,
		},
	)

	os.Exit(m.Run())
}

func newTranslator() ut.Translator {
	_en := en.New()
	uni := ut.New(_en, _en)
	translator, _ := uni.GetTranslator("en")
	return translator
}

type httpErr struct {
	Error string `json:"error"`
}

type httpTest struct {
	name     string
	method   string
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

func newRequest(method, path string, data ...[]byte) (*http.Request, *httptest.ResponseRecorder) {
	return newAuthRequest(method, path, "", data...)
}

func getToken(t *testing.T, usr user.User) string {
	claims := echoapi.GetUserClaims(usr)
	token, err := echoapi.GenerateToken(claims)
	if err != nil {
		t.Fatalf("getToken(): %v", err)
	}
	return token
}

func createUser(t *testing.T, uname, email string, roles []string) user.User {
	t.Helper()
	usr, err := usrSvc.Create(context.Background(), user.NewUser{
		Name:            uname,
		Username:        uname,
		Email:           email,
		Roles:           roles,
		Password:        "Sup3r$ecret",
		PasswordConfirm: "Sup3r$ecret",
	})
	if err != nil {
		t.Fatalf("createUser(): %v", err)
	}
	return usr
}

func marchallObj(t *testing.T, obj interface{}) []byte {
	data, err := json.Marshal(obj)
	if err != nil {
		t.Fatalf("marchallObj(): %v", err)
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
