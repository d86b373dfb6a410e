package handler

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/golang/mock/gomock"
	kafkago "github.com/segmentio/kafka-go"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"order-service/internal/config"
	"order-service/internal/domain"
	"order-service/internal/pkg/breaker"
)

func testRetry() config.Retry {
	return config.Retry{
		Attempts: 2,
		Base:     time.Millisecond,
		Max:      2 * time.Millisecond,
	}
}

func testBreaker() config.Breaker {
	return config.Breaker{
		Threshold:   3,
		OpenTimeout: time.Second,
		MaxHalfOpen: 1,
	}
}

func msg(value string) kafkago.Message {
	return kafkago.Message{Value: []byte(value), Partition: 0, Offset: 1}
}

func TestHandleCreatesOrder(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockService(ctrl)
	svc.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(&domain.Order{OrderUID: "uid-1", TrackNumber: "TN1"}, nil)

	h := NewHandler(svc, breaker.New(testBreaker()), testRetry(), zap.NewNop())
	err := h.Handle(context.Background(), msg(`{"track_number": "TN1"}`))
	require.NoError(t, err)
}

func TestHandleBadJSON(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockService(ctrl)
	h := NewHandler(svc, breaker.New(testBreaker()), testRetry(), zap.NewNop())

	err := h.Handle(context.Background(), msg(`{broken`))
	require.ErrorIs(t, err, ErrBadJSON)
}

func TestHandleMissingTrackNumber(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockService(ctrl)
	h := NewHandler(svc, breaker.New(testBreaker()), testRetry(), zap.NewNop())

	err := h.Handle(context.Background(), msg(`{"entry": "e"}`))
	require.ErrorIs(t, err, ErrBadJSON)
}

func TestHandleRetriesThenSucceeds(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockService(ctrl)
	gomock.InOrder(
		svc.EXPECT().Create(gomock.Any(), gomock.Any()).Return(nil, errors.New("transient")),
		svc.EXPECT().Create(gomock.Any(), gomock.Any()).Return(&domain.Order{OrderUID: "uid-2"}, nil),
	)

	h := NewHandler(svc, breaker.New(testBreaker()), testRetry(), zap.NewNop())
	err := h.Handle(context.Background(), msg(`{"track_number": "TN1"}`))
	require.NoError(t, err)
}

func TestHandleFailureAfterRetries(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockService(ctrl)
	svc.EXPECT().
		Create(gomock.Any(), gomock.Any()).
		Return(nil, errors.New("db down")).
		Times(2)

	h := NewHandler(svc, breaker.New(testBreaker()), testRetry(), zap.NewNop())
	err := h.Handle(context.Background(), msg(`{"track_number": "TN1"}`))
	require.ErrorIs(t, err, ErrCreate)
}

func TestHandleCircuitOpen(t *testing.T) {
	ctrl := gomock.NewController(t)
	defer ctrl.Finish()

	svc := NewMockService(ctrl)
	brkCfg := config.Breaker{Threshold: 1, OpenTimeout: time.Minute, MaxHalfOpen: 1}
	brk := breaker.New(brkCfg)

	h := NewHandler(svc, brk, testRetry(), zap.NewNop())

	// Trip the breaker with one bad message, then the next one is refused
	// without reaching the service.
	err := h.Handle(context.Background(), msg(`{broken`))
	require.ErrorIs(t, err, ErrBadJSON)

	err = h.Handle(context.Background(), msg(`{"track_number": "TN1"}`))
	require.ErrorIs(t, err, ErrCircuitOpen)
}
