package grpc

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"google.golang.org/grpc/codes"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/grpc/status"

	"github.com/Additional-Code/invoicedesk/pkg/errorbank"
)

func TestToStatus(t *testing.T) {
	assert.NoError(t, toStatus(nil))

	st, ok := status.FromError(toStatus(errorbank.NotFound("invoice not found")))
	require.True(t, ok)
	assert.Equal(t, codes.NotFound, st.Code())
	assert.Equal(t, "invoice not found", st.Message())

	st, _ = status.FromError(toStatus(errorbank.BadRequest("invalid invoice payload")))
	assert.Equal(t, codes.InvalidArgument, st.Code())

	original := status.Error(codes.Unavailable, "draining")
	assert.Equal(t, original, toStatus(original))

	plain := errors.New("boom")
	assert.Equal(t, plain, toStatus(plain))
}

func TestHealthReportsInvoiceService(t *testing.T) {
	hs := NewHealth()

	resp, err := hs.Check(context.Background(), &healthpb.HealthCheckRequest{Service: InvoiceServiceName})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_SERVING, resp.GetStatus())

	hs.Shutdown()
	resp, err = hs.Check(context.Background(), &healthpb.HealthCheckRequest{})
	require.NoError(t, err)
	assert.Equal(t, healthpb.HealthCheckResponse_NOT_SERVING, resp.GetStatus())
}
