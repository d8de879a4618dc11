package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgxpool"
	amqp "github.com/rabbitmq/amqp091-go"
	redisclient "github.com/redis/go-redis/v9"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/wait"
	"github.com/utsavplanner/bookings-and-payments/internal/adapters/crdb"
	mongoadapter "github.com/utsavplanner/bookings-and-payments/internal/adapters/mongo"
	"github.com/utsavplanner/bookings-and-payments/internal/adapters/rabbit"
	redisadapter "github.com/utsavplanner/bookings-and-payments/internal/adapters/redis"
	"github.com/utsavplanner/bookings-and-payments/internal/auth"
	"github.com/utsavplanner/bookings-and-payments/internal/config"
	"github.com/utsavplanner/bookings-and-payments/internal/domain"
	"github.com/utsavplanner/bookings-and-payments/internal/gateway/razorpay"
	httphandler "github.com/utsavplanner/bookings-and-payments/internal/http"
	"github.com/utsavplanner/bookings-and-payments/internal/idempotency"
	"github.com/utsavplanner/bookings-and-payments/internal/observability"
	"github.com/utsavplanner/bookings-and-payments/internal/rateLimit"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

const bookingsDDL = `
	CREATE TABLE IF NOT EXISTS bookings (
		id UUID PRIMARY KEY,
		event_id UUID NOT NULL,
		vendor_id UUID NOT NULL,
		user_id UUID NOT NULL,
		service_name TEXT NOT NULL,
		service_description TEXT,
		quantity FLOAT8,
		unit TEXT,
		booking_date TIMESTAMPTZ NOT NULL,
		event_date TIMESTAMPTZ NOT NULL,
		amount NUMERIC NOT NULL,
		advance_paid NUMERIC NOT NULL DEFAULT 0,
		status TEXT,
		payment_status TEXT,
		pay_order_id TEXT,
		pay_payment_id TEXT,
		pay_signature TEXT,
		notes TEXT,
		rating INT,
		review TEXT,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		updated_at TIMESTAMPTZ NOT NULL DEFAULT now()
	);
	CREATE TABLE IF NOT EXISTS outbox (
		id UUID PRIMARY KEY,
		aggregate_type TEXT NOT NULL,
		aggregate_id UUID NOT NULL,
		event_type TEXT NOT NULL,
		payload_json JSONB NOT NULL,
		created_at TIMESTAMPTZ NOT NULL DEFAULT now(),
		published_at TIMESTAMPTZ,
		status TEXT DEFAULT 'NEW',
		dedupe_key TEXT
	);
`

func TestIntegration_BookingPaymentLifecycle(t *testing.T) {
	ctx := context.Background()

	crdbContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "cockroachdb/cockroach:v24.1.1",
			Cmd:          []string{"start-single-node", "--insecure"},
			ExposedPorts: []string{"26257/tcp", "8080/tcp"},
			WaitingFor:   wait.ForHTTP("/health?ready=1").WithPort("8080"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer crdbContainer.Terminate(ctx)

	mongoContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "mongo:7",
			ExposedPorts: []string{"27017/tcp"},
			WaitingFor:   wait.ForExec([]string{"mongosh", "--eval", "db.runCommand('ping').ok"}),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer mongoContainer.Terminate(ctx)

	redisContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "redis:7",
			ExposedPorts: []string{"6379/tcp"},
			WaitingFor:   wait.ForExec([]string{"redis-cli", "ping"}),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer redisContainer.Terminate(ctx)

	rabbitContainer, err := testcontainers.GenericContainer(ctx, testcontainers.GenericContainerRequest{
		ContainerRequest: testcontainers.ContainerRequest{
			Image:        "rabbitmq:3.13-management",
			ExposedPorts: []string{"5672/tcp", "15672/tcp"},
			WaitingFor:   wait.ForHTTP("/api/health/checks/alarms").WithPort("15672").WithBasicAuth("guest", "guest"),
		},
		Started: true,
	})
	if err != nil {
		t.Fatal(err)
	}
	defer rabbitContainer.Terminate(ctx)

	crdbHost, _ := crdbContainer.Host(ctx)
	crdbPort, _ := crdbContainer.MappedPort(ctx, "26257")
	mongoHost, _ := mongoContainer.Host(ctx)
	mongoPort, _ := mongoContainer.MappedPort(ctx, "27017")
	redisHost, _ := redisContainer.Host(ctx)
	redisPort, _ := redisContainer.MappedPort(ctx, "6379")
	rabbitHost, _ := rabbitContainer.Host(ctx)
	rabbitPort, _ := rabbitContainer.MappedPort(ctx, "5672")

	cfg := &config.Config{
		CRDBDSN:        "postgresql://root@" + crdbHost + ":" + crdbPort.Port() + "/defaultdb?sslmode=disable",
		MongoURI:       "mongodb://" + mongoHost + ":" + mongoPort.Port(),
		RedisAddr:      redisHost + ":" + redisPort.Port(),
		RabbitURL:      "amqp://guest:guest@" + rabbitHost + ":" + rabbitPort.Port() + "/",
		JWTSecret:      "integration-test-secret",
		RazorpaySecret: "rzp_test_secret",
		OTLPEndpoint:   "",
	}

	pool, err := pgxpool.New(ctx, cfg.CRDBDSN)
	if err != nil {
		t.Fatal(err)
	}
	defer pool.Close()
	if _, err := pool.Exec(ctx, bookingsDDL); err != nil {
		t.Fatal(err)
	}
	repo := crdb.NewRepository(pool)

	mongoClient, err := mongo.Connect(ctx, options.Client().ApplyURI(cfg.MongoURI))
	if err != nil {
		t.Fatal(err)
	}
	defer mongoClient.Disconnect(ctx)
	mongoDB := mongoClient.Database("utsavplanner")
	logger := observability.NewLogger()
	events := mongoadapter.NewEventStore(mongoDB, logger)
	vendors := mongoadapter.NewVendorStore(mongoDB, logger)
	audit := mongoadapter.NewAuditLogger(mongoDB, logger)
	if err := vendors.EnsureIndexes(ctx); err != nil {
		t.Fatal(err)
	}

	redisClient := redisclient.NewClient(&redisclient.Options{Addr: cfg.RedisAddr})
	cache := redisadapter.NewCache(redisClient)
	idemp := idempotency.NewIdempotency(redisadapter.NewIdempotency(redisClient), time.Hour)
	rl := rateLimit.NewRateLimiter(cache)

	rabbitConn, err := amqp.Dial(cfg.RabbitURL)
	if err != nil {
		t.Fatal(err)
	}
	defer rabbitConn.Close()
	rabbitPub, err := rabbit.NewPublisher(rabbitConn)
	if err != nil {
		t.Fatal(err)
	}

	gateway := razorpay.NewClient(razorpay.Config{KeyID: "rzp_test_key", KeySecret: cfg.RazorpaySecret})
	jwtSvc := auth.NewService(cfg.JWTSecret, time.Hour)

	handlers := httphandler.NewHandlers(cfg, repo, events, vendors, audit, cache, idemp, gateway, rabbitPub, time.Now, logger)
	r := httphandler.SetupRouter(handlers, logger, jwtSvc, rl)

	srv := &http.Server{Addr: ":8081", Handler: r}
	go func() {
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			t.Error(err)
		}
	}()
	defer srv.Shutdown(ctx)
	time.Sleep(100 * time.Millisecond)
	base := "http://localhost:8081"

	// Seed: one customer event, one vendor profile, a second vendor user.
	customerID := uuid.New()
	vendorUserID := uuid.New()
	otherVendorUserID := uuid.New()
	eventID := uuid.New()
	vendorID := uuid.New()
	otherVendorID := uuid.New()
	now := time.Now()

	if err := events.CreateEvent(ctx, mongoadapter.EventDoc{
		ID: eventID, UserID: customerID, EventType: "Wedding", EventName: "Sharma Wedding",
		StartDate: now.Add(40 * 24 * time.Hour), EndDate: now.Add(41 * 24 * time.Hour),
		GuestCount: 250, Status: "Planning", CreatedAt: now, UpdatedAt: now,
	}); err != nil {
		t.Fatal(err)
	}
	for _, v := range []mongoadapter.VendorDoc{
		{ID: vendorID, UserID: vendorUserID, BusinessName: "Royal Caterers", Category: "Catering", City: "Jaipur", CreatedAt: now, UpdatedAt: now},
		{ID: otherVendorID, UserID: otherVendorUserID, BusinessName: "Lotus Decor", Category: "Decoration", City: "Jaipur", CreatedAt: now, UpdatedAt: now},
	} {
		if err := vendors.CreateVendor(ctx, v); err != nil {
			t.Fatal(err)
		}
	}

	// One profile per user: the unique user_id index maps to the sentinel.
	err = vendors.CreateVendor(ctx, mongoadapter.VendorDoc{
		ID: uuid.New(), UserID: vendorUserID, BusinessName: "Royal Caterers II", Category: "Catering", City: "Jaipur", CreatedAt: now, UpdatedAt: now,
	})
	if !errors.Is(err, domain.ErrDuplicateVendorProfile) {
		t.Fatalf("expected duplicate vendor profile error, got %v", err)
	}

	customerToken, err := jwtSvc.GenerateToken(domain.Principal{ID: customerID, Role: domain.RoleCustomer})
	if err != nil {
		t.Fatal(err)
	}
	vendorToken, err := jwtSvc.GenerateToken(domain.Principal{ID: vendorUserID, Role: domain.RoleVendor, VendorID: vendorID})
	if err != nil {
		t.Fatal(err)
	}
	otherVendorToken, err := jwtSvc.GenerateToken(domain.Principal{ID: otherVendorUserID, Role: domain.RoleVendor, VendorID: otherVendorID})
	if err != nil {
		t.Fatal(err)
	}

	do := func(method, path, token string, body interface{}, idempKey bool) *http.Response {
		t.Helper()
		var buf bytes.Buffer
		if body != nil {
			json.NewEncoder(&buf).Encode(body)
		}
		req, _ := http.NewRequest(method, base+path, &buf)
		req.Header.Set("Content-Type", "application/json")
		req.Header.Set("Authorization", "Bearer "+token)
		if idempKey {
			req.Header.Set("Idempotency-Key", uuid.New().String())
		}
		resp, err := http.DefaultClient.Do(req)
		if err != nil {
			t.Fatal(err)
		}
		return resp
	}

	// Create a booking against the seeded event and vendor.
	resp := do("POST", "/v1/bookings", customerToken, map[string]interface{}{
		"eventId":   eventID.String(),
		"vendorId":  vendorID.String(),
		"eventDate": now.Add(40 * 24 * time.Hour).Format(time.RFC3339),
		"amount":    50000,
		"serviceDetails": map[string]interface{}{
			"serviceName": "Catering",
			"quantity":    250,
			"unit":        "plates",
		},
	}, true)
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("create booking: status %d", resp.StatusCode)
	}
	var booking domain.Booking
	json.NewDecoder(resp.Body).Decode(&booking)
	resp.Body.Close()
	if booking.Status != domain.StatusPending || booking.PaymentStatus != domain.PaymentPending {
		t.Fatalf("expected Pending/Pending, got %s/%s", booking.Status, booking.PaymentStatus)
	}

	// The backref lands on the event.
	event, err := events.GetEvent(ctx, eventID)
	if err != nil {
		t.Fatal(err)
	}
	if len(event.Bookings) != 1 || event.Bookings[0] != booking.ID {
		t.Errorf("expected booking backref on event, got %v", event.Bookings)
	}

	// A second profile for the same user is refused over HTTP as well.
	resp = do("POST", "/v1/vendors", vendorToken, map[string]interface{}{
		"businessName": "Royal Caterers II",
		"category":     "Catering",
		"city":         "Jaipur",
	}, false)
	if resp.StatusCode != http.StatusConflict {
		t.Errorf("expected 409 for duplicate vendor profile, got %d", resp.StatusCode)
	}
	var dupBody struct {
		Error string `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&dupBody)
	resp.Body.Close()
	if dupBody.Error != "duplicate_vendor_profile" {
		t.Errorf("expected duplicate_vendor_profile error body, got %q", dupBody.Error)
	}

	// References are immutable: repointing the booking at another vendor is
	// rejected before any state machinery runs.
	resp = do("PUT", "/v1/bookings/"+booking.ID.String(), customerToken, map[string]interface{}{
		"vendorId": otherVendorID.String(),
	}, false)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for vendorId change, got %d", resp.StatusCode)
	}
	var mutBody struct {
		Error string `json:"error"`
	}
	json.NewDecoder(resp.Body).Decode(&mutBody)
	resp.Body.Close()
	if mutBody.Error != "invalid_mutation" {
		t.Errorf("expected invalid_mutation error body, got %q", mutBody.Error)
	}
	// Echoing the current value back is not a mutation.
	resp = do("PUT", "/v1/bookings/"+booking.ID.String(), customerToken, map[string]interface{}{
		"vendorId": vendorID.String(),
		"notes":    "confirmed menu",
	}, false)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("expected 200 for same-value vendorId, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// A vendor-role user without a profile sees an empty list, not an error.
	profilelessToken, err := jwtSvc.GenerateToken(domain.Principal{ID: uuid.New(), Role: domain.RoleVendor})
	if err != nil {
		t.Fatal(err)
	}
	resp = do("GET", "/v1/bookings", profilelessToken, nil, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 for profileless vendor list, got %d", resp.StatusCode)
	}
	var listed []domain.Booking
	json.NewDecoder(resp.Body).Decode(&listed)
	resp.Body.Close()
	if len(listed) != 0 {
		t.Errorf("expected empty list for profileless vendor, got %d", len(listed))
	}

	// Pending cannot jump straight to Completed.
	resp = do("PUT", "/v1/bookings/"+booking.ID.String(), customerToken, map[string]interface{}{"status": "Completed"}, false)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("expected 400 for Pending->Completed, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// An unrelated vendor can neither read nor write the booking.
	resp = do("GET", "/v1/bookings/"+booking.ID.String(), otherVendorToken, nil, false)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for foreign vendor read, got %d", resp.StatusCode)
	}
	resp.Body.Close()
	resp = do("PUT", "/v1/bookings/"+booking.ID.String(), otherVendorToken, map[string]interface{}{"notes": "mine now"}, false)
	if resp.StatusCode != http.StatusForbidden {
		t.Errorf("expected 403 for foreign vendor write, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	// A tampered signature must not move the booking.
	orderID := "order_IT0001"
	paymentID := "pay_IT0001"
	resp = do("POST", "/v1/payments/verify", customerToken, map[string]interface{}{
		"bookingId": booking.ID.String(),
		"orderId":   orderID,
		"paymentId": paymentID,
		"signature": "deadbeef",
	}, false)
	if resp.StatusCode != http.StatusBadRequest {
		t.Fatalf("expected 400 for bad signature, got %d", resp.StatusCode)
	}
	resp.Body.Close()
	unchanged, err := repo.GetBooking(ctx, booking.ID)
	if err != nil {
		t.Fatal(err)
	}
	if unchanged.Status != domain.StatusPending || unchanged.PaymentStatus != domain.PaymentPending {
		t.Fatalf("booking moved on failed verification: %s/%s", unchanged.Status, unchanged.PaymentStatus)
	}

	// A valid signature confirms the booking and marks it paid.
	resp = do("POST", "/v1/payments/verify", customerToken, map[string]interface{}{
		"bookingId": booking.ID.String(),
		"orderId":   orderID,
		"paymentId": paymentID,
		"signature": razorpay.Sign(orderID, paymentID, cfg.RazorpaySecret),
	}, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("verify payment: status %d", resp.StatusCode)
	}
	resp.Body.Close()

	resp = do("GET", "/v1/bookings/"+booking.ID.String(), customerToken, nil, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("get booking: status %d", resp.StatusCode)
	}
	var confirmed domain.Booking
	json.NewDecoder(resp.Body).Decode(&confirmed)
	resp.Body.Close()
	if confirmed.Status != domain.StatusConfirmed || confirmed.PaymentStatus != domain.PaymentPaid {
		t.Fatalf("expected Confirmed/Paid, got %s/%s", confirmed.Status, confirmed.PaymentStatus)
	}
	if confirmed.Payment.OrderID != orderID || confirmed.Payment.PaymentID != paymentID {
		t.Errorf("payment record not recorded: %+v", confirmed.Payment)
	}

	// Deleting detaches the backref.
	resp = do("DELETE", "/v1/bookings/"+booking.ID.String(), customerToken, nil, false)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("delete booking: status %d", resp.StatusCode)
	}
	resp.Body.Close()
	event, err = events.GetEvent(ctx, eventID)
	if err != nil {
		t.Fatal(err)
	}
	if len(event.Bookings) != 0 {
		t.Errorf("expected backref removed after delete, got %v", event.Bookings)
	}
}
