package api

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"orderdesk/internal/listing"
	"orderdesk/internal/model"
	"orderdesk/internal/status"
	"orderdesk/internal/validation"
)

type staticToken string

func (s staticToken) Token() string { return string(s) }

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	return NewClient(srv.URL+"/api/v1", 5*time.Second, status.Default())
}

func TestHeadersAndUnauthorizedHook(t *testing.T) {
	var gotToken, gotRequestID string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		gotToken = r.Header.Get("x-auth-token")
		gotRequestID = r.Header.Get("X-Request-Id")
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"message":"Token is not valid"}`))
	})

	fired := 0
	c.UseSession(staticToken("tok"), func() { fired++ })

	_, err := c.GetOrder(context.Background(), "o1")
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrUnauthorized)
	assert.Equal(t, "Token is not valid", err.Error())
	assert.Equal(t, "tok", gotToken)
	assert.Len(t, gotRequestID, 36)
	assert.Equal(t, 1, fired)
}

func TestUnauthorizedWithoutTokenDoesNotFireHook(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnauthorized)
		_, _ = w.Write([]byte(`{"error":"Invalid credentials"}`))
	})
	fired := 0
	c.UseSession(staticToken(""), func() { fired++ })

	_, _, err := c.Login(context.Background(), validation.LoginForm{Email: "a@b.co", Password: "x"})
	require.Error(t, err)
	assert.Equal(t, "Invalid credentials", err.Error())
	assert.Zero(t, fired)
}

func TestErrorMessageFallback(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte(`<html>bad gateway</html>`))
	})
	err := c.DeleteOrder(context.Background(), "o1")
	var apiErr *Error
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusBadGateway, apiErr.Status)
	assert.Equal(t, "Request failed with status 502", apiErr.Message)
}

func TestNotFound(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"message":"Order not found"}`))
	})
	_, err := c.GetOrder(context.Background(), "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestLoginDecodesNestedResponse(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/user/login", r.URL.Path)
		var form validation.LoginForm
		require.NoError(t, json.NewDecoder(r.Body).Decode(&form))
		assert.Equal(t, "admin@example.com", form.Email)
		_, _ = w.Write([]byte(`{"data":{"token":"jwt","user":{"_id":"u1","username":"admin","role":"admin"}}}`))
	})

	token, user, err := c.Login(context.Background(), validation.LoginForm{Email: "admin@example.com", Password: "admin123"})
	require.NoError(t, err)
	assert.Equal(t, "jwt", token)
	assert.Equal(t, "u1", user.ID)
	assert.Equal(t, model.RoleAdmin, user.Role)
	assert.Equal(t, "admin@example.com", user.Email)
}

func TestListOrdersQueryAndDecode(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "2", q.Get("page"))
		assert.Equal(t, "10", q.Get("perPage"))
		assert.Equal(t, "lamp", q.Get("search"))
		assert.Equal(t, "ON HOLD", q.Get("filterBy"))
		_, _ = w.Write([]byte(`{"orders":[
			{"_id":"o1","orderName":"Lamp","amazonOrderNo":"111","status":"HOLD","commission":"12.50",
			 "createdBy":{"_id":"u1","username":"john","email":"john@example.com"},
			 "createdAt":"2024-05-01T10:00:00.000Z"}
		],"totalCount":11}`))
	})

	st := listing.NewState(listing.DefaultOrdersPerPage)
	st.SetSearch("lamp")
	st.SetStatus("ON HOLD")
	st.GoTo(2)

	page, err := c.ListOrders(context.Background(), st)
	require.NoError(t, err)
	require.Len(t, page.Items, 1)
	o := page.Items[0]
	assert.Equal(t, "o1", o.ID)
	assert.Equal(t, "ON HOLD", o.Status)
	assert.Equal(t, "12.5", o.Commission.String())
	assert.Equal(t, "john", o.CreatedBy.Username)
	assert.Equal(t, 2, page.TotalPages)
	assert.False(t, page.HasNext())
}

func TestGetOrderDecodesHistoryAndScreenshots(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"data":{
			"id":"o9","orderName":"Mouse","amazonOrderNumber":"222","status":"COMISSION_COLLECTED",
			"OrderSS":"https://cdn/o.png","RefundSS":"https://cdn/r.png",
			"comments":[{"_id":"c1","comment":"hi","commentedBy":{"_id":"u1","username":"john"},"role":"user"}],
			"statusHistory":[
				{"_id":"h1","newStatus":"ORDERED","changedBy":{"username":"john","role":"user"},"changedAt":"2024-05-01T10:00:00Z"},
				{"_id":"h2","previousStatus":"ORDERED","newStatus":"COMISSION_COLLECTED","changedBy":{"username":"boss","role":"admin"},"changedAt":"2024-05-02T10:00:00Z"}
			]}}`))
	})

	o, err := c.GetOrder(context.Background(), "o9")
	require.NoError(t, err)
	assert.Equal(t, "222", o.AmazonOrderNo)
	assert.Equal(t, "COMMISSION_COLLECTED", o.Status)
	require.Len(t, o.StatusHistory, 2)
	assert.Equal(t, "h2", o.StatusHistory[0].ID)
	assert.Equal(t, "o9", o.StatusHistory[0].OrderID)
	assert.Empty(t, o.StatusHistory[1].PreviousStatus)
	assert.Equal(t, []model.Screenshot{
		{Role: model.ScreenshotOrder, URL: "https://cdn/o.png"},
		{Role: model.ScreenshotRefund, URL: "https://cdn/r.png"},
	}, o.Screenshots)
	require.Len(t, o.Comments, 1)
	assert.Equal(t, "hi", o.Comments[0].Text)
}

func TestUpdateStatusJSONAndMultipart(t *testing.T) {
	var contentTypes []string
	var bodies []string
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, http.MethodPut, r.Method)
		contentTypes = append(contentTypes, r.Header.Get("Content-Type"))
		if strings.HasPrefix(r.Header.Get("Content-Type"), "multipart/") {
			require.NoError(t, r.ParseMultipartForm(1<<20))
			assert.Equal(t, "REFUNDED", r.FormValue("status"))
			f, _, err := r.FormFile("RefundSS")
			require.NoError(t, err)
			b, _ := io.ReadAll(f)
			bodies = append(bodies, string(b))
			_, _ = w.Write([]byte(`{"message":"Status updated"}`))
			return
		}
		b, _ := io.ReadAll(r.Body)
		bodies = append(bodies, string(b))
		_, _ = w.Write([]byte(`{"order":{"_id":"o1","status":"PAID"}}`))
	})

	o, err := c.UpdateStatus(context.Background(), "o1", "PAID", nil)
	require.NoError(t, err)
	assert.Equal(t, "PAID", o.Status)

	o, err = c.UpdateStatus(context.Background(), "o1", "REFUNDED",
		&validation.File{Name: "refund.png", Reader: strings.NewReader("img")})
	require.NoError(t, err)
	assert.Equal(t, model.Order{ID: "o1", Status: "REFUNDED"}, o)

	assert.Equal(t, "application/json", contentTypes[0])
	assert.JSONEq(t, `{"status":"PAID"}`, bodies[0])
	assert.Equal(t, "img", bodies[1])
}

func TestCreateOrderMultipart(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/order/create", r.URL.Path)
		require.NoError(t, r.ParseMultipartForm(1<<20))
		assert.Equal(t, "Lamp", r.FormValue("orderName"))
		assert.Equal(t, "111", r.FormValue("amazonOrderNo"))
		assert.Empty(t, r.FormValue("buyerName"))
		_, _, err := r.FormFile("OrderSS")
		require.NoError(t, err)
		_, _, err = r.FormFile("AmazonProductSS")
		assert.Error(t, err)
		w.WriteHeader(http.StatusCreated)
		_, _ = w.Write([]byte(`{"data":{"_id":"new1","orderName":"Lamp","status":"ORDERED"}}`))
	})

	o, err := c.CreateOrder(context.Background(), validation.CreateOrderForm{
		OrderName: "Lamp", AmazonOrderNo: "111", BuyerPaypal: "p@x.com",
		OrderSS: &validation.File{Name: "o.png", Reader: strings.NewReader("png")},
	})
	require.NoError(t, err)
	assert.Equal(t, "new1", o.ID)
}

func TestDecodeStatsShapesAgree(t *testing.T) {
	c := NewClient("http://x", time.Second, status.Default())
	shapes := []string{
		`[{"status":"PAID","count":3},{"status":"ORDERED","count":5}]`,
		`{"statusCounts":{"PAID":3,"ORDERED":5}}`,
		`{"data":[{"_id":"PAID","count":3},{"_id":"ORDERED","count":"5"}]}`,
		`{"data":{"statusCounts":{"PAID":3,"ORDERED":5}}}`,
		`{"PAID":3,"ORDERED":5,"total":8}`,
	}
	for _, s := range shapes {
		stats, err := c.DecodeStats([]byte(s))
		require.NoError(t, err, s)
		assert.Equal(t, Stats{"PAID": 3, "ORDERED": 5}, stats, s)
		assert.Equal(t, 8, stats.Total())
	}

	stats, err := c.DecodeStats([]byte(`{"COMISSION_COLLECTED":2,"COMMISSION_COLLECTED":1}`))
	require.NoError(t, err)
	assert.Equal(t, Stats{"COMMISSION_COLLECTED": 3}, stats)
}

func TestAlertHistoryDecodesLooseRows(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		q := r.URL.Query()
		assert.Equal(t, "25", q.Get("limit"))
		assert.Equal(t, "PAID", q.Get("status"))
		_, _ = w.Write([]byte(`{"data":[
			{"_id":"a1","orderId":{"_id":"o1","orderName":"Lamp","amazonOrderNo":"111"},
			 "previous_status":"ORDERED","new_status":"PAID","changed_by":{"_id":"u2","username":"boss"},
			 "role":"admin","created_at":"2024-05-02T10:00:00Z"},
			{"id":"a2","orderId":"o2","status":"HOLD"}
		],"total":60}`))
	})

	page, err := c.AlertHistory(context.Background(), HistoryQuery{Page: 1, PerPage: 25, Status: "PAID"})
	require.NoError(t, err)
	require.Len(t, page.Items, 2)

	a := page.Items[0]
	assert.Equal(t, "o1", a.OrderID)
	assert.Equal(t, "Lamp", a.OrderName)
	assert.Equal(t, "111", a.AmazonOrderNo)
	assert.Equal(t, "ORDERED", a.PreviousStatus)
	assert.Equal(t, "PAID", a.NewStatus)
	assert.Equal(t, model.Actor{ID: "u2", Username: "boss", Role: model.RoleAdmin}, a.ChangedBy)

	b := page.Items[1]
	assert.Equal(t, "o2", b.OrderID)
	assert.Equal(t, "ON HOLD", b.NewStatus)
	assert.Equal(t, "unknown", b.ChangedBy.Username)
	assert.False(t, b.ChangedAt.IsZero())

	assert.Equal(t, 3, page.TotalPages)
	assert.True(t, page.HasNext())
}

func TestSheets(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet:
			_, _ = w.Write([]byte(`{"data":[{"_id":"s1","name":"May","createdBy":{"username":"boss"}}]}`))
		case http.MethodPost:
			_, _ = w.Write([]byte(`{"data":{"_id":"s2","name":"June"}}`))
		case http.MethodDelete:
			assert.Equal(t, "/api/v1/sheet/s1", r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		}
	})
	ctx := context.Background()

	sheets, err := c.Sheets(ctx)
	require.NoError(t, err)
	assert.Equal(t, []model.Sheet{{ID: "s1", Name: "May", CreatedBy: "boss"}}, sheets)

	s, err := c.CreateSheet(ctx, "June")
	require.NoError(t, err)
	assert.Equal(t, "s2", s.ID)

	require.NoError(t, c.DeleteSheet(ctx, "s1"))
}
