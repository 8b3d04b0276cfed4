package http_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	storefrontHttp "github.com/vasiliy-maslov/gamergear-storefront/internal/handler/http"
	"github.com/vasiliy-maslov/gamergear-storefront/internal/order"
)

type MockOrderService struct {
	mock.Mock
}

func (m *MockOrderService) CreateOrder(ctx context.Context, input *order.Order) (*order.Order, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) ListOrders(ctx context.Context, userID string) ([]order.Order, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]order.Order), args.Error(1)
}

func (m *MockOrderService) GetOrder(ctx context.Context, id string) (*order.Order, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) UpdateOrder(ctx context.Context, id string, req order.UpdateRequest) (*order.Order, error) {
	args := m.Called(ctx, id, req)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Order), args.Error(1)
}

func (m *MockOrderService) DeleteOrder(ctx context.Context, id string) error {
	args := m.Called(ctx, id)
	return args.Error(0)
}

func (m *MockOrderService) Summarize(ctx context.Context, id string) (*order.Summary, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*order.Summary), args.Error(1)
}

func newOrderRouter(svc order.Service) *chi.Mux {
	router := chi.NewRouter()
	storefrontHttp.NewOrderHandler(svc).RegisterRoutes(router)
	return router
}

func serve(router http.Handler, method, target, body string) *httptest.ResponseRecorder {
	var reader *bytes.Buffer
	if body == "" {
		reader = &bytes.Buffer{}
	} else {
		reader = bytes.NewBufferString(body)
	}
	req := httptest.NewRequest(method, target, reader)
	req.Header.Set("Content-Type", "application/json")
	rr := httptest.NewRecorder()
	router.ServeHTTP(rr, req)
	return rr
}

func decodeError(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var errorResponse map[string]interface{}
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&errorResponse), "Failed to decode error response body")
	msg, _ := errorResponse["error"].(string)
	return msg
}

func storedOrder() *order.Order {
	return &order.Order{
		ID:              "ORD-1709294400000",
		UserID:          "p1@example.com",
		UserName:        "Player One",
		UserPhone:       "555-0101",
		Items:           []order.Item{{ID: "kb-1", Name: "Keyboard", Price: 12.5, Quantity: 2}},
		Total:           25,
		Date:            time.Date(2024, time.March, 1, 12, 0, 0, 0, time.UTC),
		Status:          order.StatusPending,
		PaymentMethod:   order.PaymentCash,
		DeliveryAddress: "1 Main St",
	}
}

func TestOrderHandler_handleCreateOrder_Success(t *testing.T) {
	mockService := new(MockOrderService)
	created := storedOrder()

	mockService.On("CreateOrder", mock.Anything, mock.MatchedBy(func(o *order.Order) bool {
		return o.ID == "" && o.Total == 0 && o.Status == "" &&
			o.UserID == "p1@example.com" &&
			o.PaymentMethod == order.PaymentCash &&
			len(o.Items) == 1
	})).Return(created, nil).Once()

	body := `{
		"id": "client-chosen",
		"userId": "p1@example.com",
		"userName": "Player One",
		"userPhone": "555-0101",
		"items": [{"id": "kb-1", "name": "Keyboard", "price": 12.5, "quantity": 2}],
		"total": 1,
		"status": "completed",
		"paymentMethod": "cash",
		"deliveryAddress": "1 Main St"
	}`
	rr := serve(newOrderRouter(mockService), http.MethodPost, "/orders", body)
	require.Equal(t, http.StatusCreated, rr.Code)

	var actual order.Order
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&actual))
	if diff := cmp.Diff(*created, actual); diff != "" {
		t.Errorf("created order mismatch (-want +got):\n%s", diff)
	}
	mockService.AssertExpectations(t)
}

func TestOrderHandler_handleCreateOrder_ValidationError(t *testing.T) {
	mockService := new(MockOrderService)

	rr := serve(newOrderRouter(mockService), http.MethodPost, "/orders", `{"userId": "", "items": [], "paymentMethod": "card"}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)

	var response storefrontHttp.ValidationErrorResponse
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&response))
	assert.Equal(t, "Validation failed", response.Error)
	assert.Contains(t, response.Details, "userId")
	assert.Contains(t, response.Details, "items")
	assert.Contains(t, response.Details, "paymentMethod")
	mockService.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestOrderHandler_handleCreateOrder_InvalidJSON(t *testing.T) {
	mockService := new(MockOrderService)

	rr := serve(newOrderRouter(mockService), http.MethodPost, "/orders", `{"userId": "p1@example.com" "items": []}`)
	require.Equal(t, http.StatusBadRequest, rr.Code)
	assert.Contains(t, decodeError(t, rr), "Invalid request payload")
	mockService.AssertNotCalled(t, "CreateOrder", mock.Anything, mock.Anything)
}

func TestOrderHandler_handleUpdateOrder(t *testing.T) {
	shipped := order.StatusShipped

	tests := []struct {
		name           string
		body           string
		setupMock      func(m *MockOrderService)
		expectedStatus int
		expectedError  string
	}{
		{
			name: "success",
			body: `{"status": "processing"}`,
			setupMock: func(m *MockOrderService) {
				updated := storedOrder()
				updated.Status = order.StatusProcessing
				processing := order.StatusProcessing
				m.On("UpdateOrder", mock.Anything, "ORD-1", order.UpdateRequest{Status: &processing}).Return(updated, nil).Once()
			},
			expectedStatus: http.StatusOK,
		},
		{
			name: "invalid transition",
			body: `{"status": "shipped"}`,
			setupMock: func(m *MockOrderService) {
				m.On("UpdateOrder", mock.Anything, "ORD-1", order.UpdateRequest{Status: &shipped}).
					Return(nil, order.ErrInvalidStatusTransition).Once()
			},
			expectedStatus: http.StatusConflict,
		},
		{
			name: "not found",
			body: `{"status": "shipped"}`,
			setupMock: func(m *MockOrderService) {
				m.On("UpdateOrder", mock.Anything, "ORD-1", mock.Anything).Return(nil, order.ErrOrderNotFound).Once()
			},
			expectedStatus: http.StatusNotFound,
		},
		{
			name:           "unknown field",
			body:           `{"status": "processing", "total": 0}`,
			setupMock:      func(m *MockOrderService) {},
			expectedStatus: http.StatusBadRequest,
			expectedError:  "Invalid request payload",
		},
		{
			name: "storage failure",
			body: `{"status": "processing"}`,
			setupMock: func(m *MockOrderService) {
				m.On("UpdateOrder", mock.Anything, "ORD-1", mock.Anything).Return(nil, errors.New("disk full")).Once()
			},
			expectedStatus: http.StatusInternalServerError,
			expectedError:  "Failed to update order",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockOrderService)
			tt.setupMock(mockService)

			rr := serve(newOrderRouter(mockService), http.MethodPut, "/orders/ORD-1", tt.body)
			require.Equal(t, tt.expectedStatus, rr.Code)
			if tt.expectedError != "" {
				assert.Contains(t, decodeError(t, rr), tt.expectedError)
			}
			mockService.AssertExpectations(t)
		})
	}
}

func TestOrderHandler_handleListOrders_FiltersByUser(t *testing.T) {
	mockService := new(MockOrderService)
	mockService.On("ListOrders", mock.Anything, "p1@example.com").Return([]order.Order{*storedOrder()}, nil).Once()

	rr := serve(newOrderRouter(mockService), http.MethodGet, "/orders?userId=p1@example.com", "")
	require.Equal(t, http.StatusOK, rr.Code)

	var orders []order.Order
	require.NoError(t, json.NewDecoder(rr.Body).Decode(&orders))
	assert.Len(t, orders, 1)
	mockService.AssertExpectations(t)
}

func TestOrderHandler_handleGetOrderAndSummary(t *testing.T) {
	mockService := new(MockOrderService)
	mockService.On("GetOrder", mock.Anything, "missing").Return(nil, order.ErrOrderNotFound).Once()
	mockService.On("Summarize", mock.Anything, "ORD-1").Return(&order.Summary{
		OrderID: "ORD-1", PaymentMethod: order.PaymentCash, Subtotal: 25, DeliveryFee: 9, Total: 34,
	}, nil).Once()

	router := newOrderRouter(mockService)

	rr := serve(router, http.MethodGet, "/orders/missing", "")
	require.Equal(t, http.StatusNotFound, rr.Code)
	assert.Contains(t, decodeError(t, rr), "not found")

	rr = serve(router, http.MethodGet, "/orders/ORD-1/summary", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"orderId":"ORD-1","paymentMethod":"cash","subtotal":25,"deliveryFee":9,"total":34}`, rr.Body.String())
	mockService.AssertExpectations(t)
}

func TestOrderHandler_handleDeleteOrder(t *testing.T) {
	mockService := new(MockOrderService)
	mockService.On("DeleteOrder", mock.Anything, "ORD-1").Return(nil).Once()

	rr := serve(newOrderRouter(mockService), http.MethodDelete, "/orders/ORD-1", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"success":true}`, rr.Body.String())
	mockService.AssertExpectations(t)
}
