package tests

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"testing"

	"github.com/shopspring/decimal"

	echoapi "github.com/tahanan-ph/tahanan/apps/api/echo"
	"github.com/tahanan-ph/tahanan/core/billing"
	"github.com/tahanan-ph/tahanan/core/payment"
	"github.com/tahanan-ph/tahanan/core/room"
	"github.com/tahanan-ph/tahanan/core/tenant"
	"github.com/tahanan-ph/tahanan/core/user"
)

func createRoom(t *testing.T, number string, capacity int) room.Room {
	t.Helper()
	rm, err := roomSvc.Create(context.Background(), room.NewRoom{
		RoomNumber:       number,
		BedType:          room.BedTypeDouble,
		Capacity:         capacity,
		PriceMonthly:     decimal.NewFromInt(6000),
		BaseElectricRate: decimal.NewFromInt(400),
	})
	if err != nil {
		t.Fatalf("createRoom(): %v", err)
	}
	return rm
}

func moveIn(t *testing.T, roomID, name, profileID string) tenant.Tenant {
	t.Helper()
	tnt, err := tenantSvc.MoveIn(context.Background(), tenant.NewTenant{
		RoomID:     roomID,
		TenantName: name,
		ProfileID:  profileID,
	})
	if err != nil {
		t.Fatalf("moveIn(): %v", err)
	}
	return tnt
}

func pendingPayment(t *testing.T, tenantID string) payment.Payment {
	t.Helper()
	payments, err := paymentSvc.Query(context.Background(), &payment.QueryFilter{
		TenantID: tenantID,
		View:     payment.ViewPending,
	})
	if err != nil {
		t.Fatalf("pendingPayment(): %v", err)
	}
	if len(payments) == 0 {
		t.Fatal("pendingPayment(): none found")
	}
	return payments[0]
}

func Test_home(t *testing.T) {
	req, rec := newRequest(http.MethodGet, "/")
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusOK)
	}
	if rec.Body.String() != "Welcome to Tahanan API!" {
		t.Errorf("body = %q", rec.Body.String())
	}
}

func Test_userApi_login(t *testing.T) {
	usr := createUser(t, "loginowner", "loginowner@test.test", []string{user.RoleAdminOwner})

	tests := []struct {
		name     string
		body     string
		wantCode int
	}{
		{"valid credentials", `{"username": "loginowner", "password": "Sup3r$ecret"}`, http.StatusOK},
		{"valid via email", fmt.Sprintf(`{"username": %q, "password": "Sup3r$ecret"}`, usr.Email), http.StatusOK},
		{"wrong password", `{"username": "loginowner", "password": "nope"}`, http.StatusBadRequest},
		{"unknown user", `{"username": "ghost", "password": "Sup3r$ecret"}`, http.StatusBadRequest},
		{"missing fields", `{}`, http.StatusBadRequest},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newRequest(http.MethodPost, "/v1/users/login", []byte(tt.body))
			app.ServeHTTP(rec, req)
			if rec.Code != tt.wantCode {
				t.Fatalf("code = %v; want %v; body %s", rec.Code, tt.wantCode, rec.Body.String())
			}
			if tt.wantCode == http.StatusOK {
				var resp echoapi.LoginResponse
				if err := json.Unmarshal(rec.Body.Bytes(), &resp); err != nil {
					t.Fatalf("unmarshalling: %v", err)
				}
				if resp.Token == "" {
					t.Error("empty token")
				}
			}
		})
	}
}

func Test_roomApi_access(t *testing.T) {
	admin := createUser(t, "roomadmin", "roomadmin@test.test", []string{user.RoleAdminManager})
	portal := createUser(t, "roomtenant", "roomtenant@test.test", []string{user.RoleTenant})

	tests := []httpTest{
		{
			name: "Auth required", method: http.MethodGet, path: "/v1/rooms",
			wantCode: http.StatusUnauthorized, wantData: marchallObj(t, errMissingToken),
		},
		{
			name: "Admin required", method: http.MethodGet, path: "/v1/rooms", token: getToken(t, portal),
			wantCode: http.StatusForbidden, wantData: marchallObj(t, errForbidden),
		},
		{
			name: "Admin allowed", method: http.MethodGet, path: "/v1/rooms", token: getToken(t, admin),
			wantCode: http.StatusOK,
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req, rec := newAuthRequest(tt.method, tt.path, tt.token, tt.body)
			app.ServeHTTP(rec, req)
			checkCodeAndData(t, tt, rec)
		})
	}
}

func Test_roomApi_create(t *testing.T) {
	admin := createUser(t, "roomowner", "roomowner@test.test", []string{user.RoleAdminOwner})
	token := getToken(t, admin)

	body := []byte(`{"room_number": "A-101", "bed_type": "Double Deck", "capacity": 2, "price_monthly": "6000", "base_electric_rate": "400"}`)
	req, rec := newAuthRequest(http.MethodPost, "/v1/rooms", token, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	var rm room.Room
	if err := json.Unmarshal(rec.Body.Bytes(), &rm); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if rm.Status != room.StatusAvailable {
		t.Errorf("status = %q; want %q", rm.Status, room.StatusAvailable)
	}

	// duplicate room number is a field error
	req, rec = newAuthRequest(http.MethodPost, "/v1/rooms", token, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}

	// occupancy starts empty
	req, rec = newAuthRequest(http.MethodGet, "/v1/rooms/"+rm.ID+"/occupancy", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	var occ echoapi.OccupancyResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &occ); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if occ.ActiveTenants != 0 || occ.Capacity != 2 {
		t.Errorf("occupancy = %+v", occ)
	}
}

func Test_tenantApi_moveInFlow(t *testing.T) {
	admin := createUser(t, "tenantowner", "tenantowner@test.test", []string{user.RoleAdminOwner})
	token := getToken(t, admin)
	rm := createRoom(t, "B-201", 1)

	// move in
	body := []byte(fmt.Sprintf(`{"room_id": %q, "tenant_name": "Juan Dela Cruz", "email": "juan@test.test"}`, rm.ID))
	req, rec := newAuthRequest(http.MethodPost, "/v1/tenants", token, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	var tnt tenant.Tenant
	if err := json.Unmarshal(rec.Body.Bytes(), &tnt); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}

	// the single bed is now taken
	req, rec = newAuthRequest(http.MethodPost, "/v1/tenants", token, []byte(fmt.Sprintf(`{"room_id": %q, "tenant_name": "Maria Clara"}`, rm.ID)))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}

	// billing breakdown
	req, rec = newAuthRequest(http.MethodGet, "/v1/tenants/"+tnt.ID+"/billing", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	var bill echoapi.BillingResponse
	if err := json.Unmarshal(rec.Body.Bytes(), &bill); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if !bill.Charge.Total.Equal(decimal.NewFromInt(6400)) {
		t.Errorf("total = %s; want 6400", bill.Charge.Total)
	}

	// an advance while the initial payment is Pending is a conflict
	req, rec = newAuthRequest(http.MethodPost, "/v1/tenants/"+tnt.ID+"/payments/advance", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusConflict, rec.Body.String())
	}

	// move out frees the room
	req, rec = newAuthRequest(http.MethodPost, "/v1/tenants/"+tnt.ID+"/move-out", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	stored, err := roomSvc.GetByID(context.Background(), rm.ID)
	if err != nil {
		t.Fatalf("GetByID(): %v", err)
	}
	if stored.Status != room.StatusAvailable {
		t.Errorf("room status = %q; want %q", stored.Status, room.StatusAvailable)
	}

	// moving out twice is a conflict
	req, rec = newAuthRequest(http.MethodPost, "/v1/tenants/"+tnt.ID+"/move-out", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusConflict)
	}
}

func Test_paymentApi_lifecycle(t *testing.T) {
	admin := createUser(t, "payowner", "payowner@test.test", []string{user.RoleAdminOwner})
	token := getToken(t, admin)
	rm := createRoom(t, "C-301", 2)
	tnt := moveIn(t, rm.ID, "Andres Bonifacio", "")
	pmt := pendingPayment(t, tnt.ID)

	// an unknown view is rejected
	req, rec := newAuthRequest(http.MethodGet, "/v1/payments?view=Bogus", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusBadRequest {
		t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusBadRequest, rec.Body.String())
	}

	// mark paid
	body := []byte(`{"reference_no": "OR-1001", "method": "gcash"}`)
	req, rec = newAuthRequest(http.MethodPost, "/v1/payments/"+pmt.ID+"/mark-paid", token, body)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	var paid payment.Payment
	if err := json.Unmarshal(rec.Body.Bytes(), &paid); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if paid.Status != payment.StatusPaid || paid.ReferenceNo != "OR-1001" {
		t.Errorf("payment = %+v", paid)
	}

	// marking paid again is a no-op success and keeps the original reference
	req, rec = newAuthRequest(http.MethodPost, "/v1/payments/"+pmt.ID+"/mark-paid", token, []byte(`{"reference_no": "OR-9999"}`))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	if err := json.Unmarshal(rec.Body.Bytes(), &paid); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if paid.ReferenceNo != "OR-1001" {
		t.Errorf("referenceNo = %q; want OR-1001", paid.ReferenceNo)
	}

	// a Paid payment cannot be cancelled
	req, rec = newAuthRequest(http.MethodPost, "/v1/payments/"+pmt.ID+"/cancel", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusConflict, rec.Body.String())
	}

	// stats reflect the settled payment
	req, rec = newAuthRequest(http.MethodGet, "/v1/payments/stats?tenant_id="+tnt.ID, token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	var stats payment.Stats
	if err := json.Unmarshal(rec.Body.Bytes(), &stats); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if stats.PaidCount != 1 || stats.TotalCount != 1 {
		t.Errorf("stats = %+v", stats)
	}
}

func Test_portalApi(t *testing.T) {
	portalUsr := createUser(t, "portaljuan", "portaljuan@test.test", []string{user.RoleTenant})
	admin := createUser(t, "portaladmin", "portaladmin@test.test", []string{user.RoleAdminOwner})
	token := getToken(t, portalUsr)

	rm := createRoom(t, "D-401", 2)
	tnt := moveIn(t, rm.ID, "Juan Luna", portalUsr.ID)

	// admins have no tenancy; the portal is tenant-only
	req, rec := newAuthRequest(http.MethodGet, "/v1/portal/me", getToken(t, admin))
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusForbidden {
		t.Errorf("code = %v; want %v", rec.Code, http.StatusForbidden)
	}

	// the caller's own tenancy resolves from their token
	req, rec = newAuthRequest(http.MethodGet, "/v1/portal/me", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	var me tenant.Tenant
	if err := json.Unmarshal(rec.Body.Bytes(), &me); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if me.ID != tnt.ID {
		t.Errorf("me.ID = %q; want %q", me.ID, tnt.ID)
	}

	// own payments only
	req, rec = newAuthRequest(http.MethodGet, "/v1/portal/payments", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	var payments []payment.Payment
	if err := json.Unmarshal(rec.Body.Bytes(), &payments); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	if len(payments) != 1 || payments[0].TenantID != tnt.ID {
		t.Errorf("payments = %+v", payments)
	}

	// billing breakdown
	req, rec = newAuthRequest(http.MethodGet, "/v1/portal/billing", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusOK {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}

	// advance while the initial payment is Pending is a conflict
	req, rec = newAuthRequest(http.MethodPost, "/v1/portal/payments/advance", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusConflict {
		t.Errorf("code = %v; want %v; body %s", rec.Code, http.StatusConflict, rec.Body.String())
	}

	// settle it; the advance rolls the due date one month
	pmt := pendingPayment(t, tnt.ID)
	if _, err := paymentSvc.MarkPaid(context.Background(), pmt.ID, "OR-2001", payment.MethodCash); err != nil {
		t.Fatalf("MarkPaid(): %v", err)
	}
	req, rec = newAuthRequest(http.MethodPost, "/v1/portal/payments/advance", token)
	app.ServeHTTP(rec, req)
	if rec.Code != http.StatusCreated {
		t.Fatalf("code = %v; body %s", rec.Code, rec.Body.String())
	}
	var adv payment.Payment
	if err := json.Unmarshal(rec.Body.Bytes(), &adv); err != nil {
		t.Fatalf("unmarshalling: %v", err)
	}
	wantDue := billing.NextDueDate(tnt.RentDue)
	if !adv.DueDate.Equal(wantDue) {
		t.Errorf("dueDate = %v; want %v", adv.DueDate, wantDue)
	}
}
