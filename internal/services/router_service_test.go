package services_test

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	mqttLib "github.com/eclipse/paho.mqtt.golang"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/benmeehan/pixie-bridge/internal/constants"
	"github.com/benmeehan/pixie-bridge/internal/handlers"
	"github.com/benmeehan/pixie-bridge/internal/mocks"
	"github.com/benmeehan/pixie-bridge/internal/models"
	"github.com/benmeehan/pixie-bridge/internal/services"
	"github.com/benmeehan/pixie-bridge/internal/topics"
)

// handlerFunc adapts a function to services.RequestHandler.
type handlerFunc func(ctx context.Context, req handlers.Request) (handlers.Result, error)

func (f handlerFunc) Handle(ctx context.Context, req handlers.Request) (handlers.Result, error) {
	return f(ctx, req)
}

// subscribedRouter starts a router against a mock client and returns the captured message callback.
func subscribedRouter(t *testing.T, client *mocks.MockMQTTClient, h services.RequestHandler) (*services.RouterService, mqttLib.MessageHandler) {
	t.Helper()
	var mu sync.Mutex
	var callback mqttLib.MessageHandler
	capture := func(args mock.Arguments) {
		mu.Lock()
		callback = args.Get(2).(mqttLib.MessageHandler)
		mu.Unlock()
	}
	client.On("Subscribe", constants.TypedRequestFilter, byte(1), mock.Anything).Run(capture).Return(mocks.NewCompletedToken(nil))
	client.On("Subscribe", constants.RegisterRequestFilter, byte(1), mock.Anything).Return(mocks.NewCompletedToken(nil))
	client.On("Unsubscribe", []string{constants.TypedRequestFilter, constants.RegisterRequestFilter}).Return(mocks.NewCompletedToken(nil))

	r := services.NewRouterService(1, 2, 8, time.Second, client, h, zerolog.Nop())
	require.NoError(t, r.Start())

	mu.Lock()
	defer mu.Unlock()
	require.NotNil(t, callback)
	return r, callback
}

// TestRouterService_PublishesResponse tests that a handled request is answered on its response topic.
func TestRouterService_PublishesResponse(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	client.On("Publish", "pixie/42/response/config", byte(1), false, []byte(`{"ok":true}`)).Return(mocks.NewCompletedToken(nil)).Once()

	var got handlers.Request
	r, onMessage := subscribedRouter(t, client, handlerFunc(func(ctx context.Context, req handlers.Request) (handlers.Result, error) {
		got = req
		return handlers.Result{Payload: []byte(`{"ok":true}`)}, nil
	}))

	onMessage(nil, mocks.NewMockMessage("pixie/42/request/config", []byte("{}")))
	require.NoError(t, r.Stop())

	client.AssertExpectations(t)
	assert.Equal(t, constants.KindConfig, got.Kind)
	assert.Equal(t, int64(42), got.DeviceID)
	assert.Equal(t, []byte("{}"), got.Payload)
}

// TestRouterService_Registration tests MAC topics are routed and answered under pixie/mac.
func TestRouterService_Registration(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	client.On("Publish", "pixie/mac/AA:BB/response/register", byte(1), false, mock.Anything).Return(mocks.NewCompletedToken(nil)).Once()

	r, onMessage := subscribedRouter(t, client, handlerFunc(func(ctx context.Context, req handlers.Request) (handlers.Result, error) {
		assert.Equal(t, "AA:BB", req.MAC)
		return handlers.JSON(models.RegisterResponse{PixieID: 1, Code: "0000"})
	}))

	onMessage(nil, mocks.NewMockMessage("pixie/mac/AA:BB/request/register", nil))
	require.NoError(t, r.Stop())
	client.AssertExpectations(t)
}

// TestRouterService_FailSilent tests that failures, empty results and bad topics publish nothing.
func TestRouterService_FailSilent(t *testing.T) {
	client := new(mocks.MockMQTTClient)

	var mu sync.Mutex
	calls := 0
	r, onMessage := subscribedRouter(t, client, handlerFunc(func(ctx context.Context, req handlers.Request) (handlers.Result, error) {
		mu.Lock()
		defer mu.Unlock()
		calls++
		if req.Kind == constants.KindSong {
			return handlers.Result{}, models.ErrNothingToSend
		}
		return handlers.Result{}, errors.New("datastore down")
	}))

	onMessage(nil, mocks.NewMockMessage("pixie/1/request/song", nil))
	onMessage(nil, mocks.NewMockMessage("pixie/1/request/photo", nil))
	onMessage(nil, mocks.NewMockMessage("pixie/abc/request/song", nil))
	onMessage(nil, mocks.NewMockMessage("foo/bar", nil))
	require.NoError(t, r.Stop())

	client.AssertNotCalled(t, "Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
	assert.Equal(t, 2, calls)
}

// TestRouterService_StartStop tests the lifecycle guards and subscribe failure.
func TestRouterService_StartStop(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	r, _ := subscribedRouter(t, client, handlerFunc(func(ctx context.Context, req handlers.Request) (handlers.Result, error) {
		return handlers.Result{}, nil
	}))

	err := r.Start()
	assert.Error(t, err)
	assert.Equal(t, "router service is already running", err.Error())

	require.NoError(t, r.Stop())
	err = r.Stop()
	assert.Error(t, err)
	assert.Equal(t, "router service is not running", err.Error())

	failing := new(mocks.MockMQTTClient)
	failing.On("Subscribe", mock.Anything, mock.Anything, mock.Anything).Return(mocks.NewCompletedToken(errors.New("denied")))
	r2 := services.NewRouterService(1, 1, 1, time.Second, failing, nil, zerolog.Nop())
	assert.Error(t, r2.Start())
	assert.Error(t, r2.Stop())
}

// TestRouterService_Dispatch_PublishTimeout tests that an unacknowledged publish is abandoned.
func TestRouterService_Dispatch_PublishTimeout(t *testing.T) {
	client := new(mocks.MockMQTTClient)
	token := new(mocks.MockToken)
	token.On("WaitTimeout", 20*time.Millisecond).Return(false)
	client.On("Publish", "pixie/7/response/ota", byte(1), false, mock.Anything).Return(token)

	r := services.NewRouterService(1, 1, 1, 20*time.Millisecond, client, handlerFunc(func(ctx context.Context, req handlers.Request) (handlers.Result, error) {
		return handlers.Result{Payload: []byte("{}")}, nil
	}), zerolog.Nop())

	r.Dispatch(context.Background(), handlers.Request{Request: mustParse(t, "pixie/7/request/ota")})
	token.AssertExpectations(t)
	token.AssertNotCalled(t, "Error")
}

func mustParse(t *testing.T, topic string) topics.Request {
	t.Helper()
	req, err := topics.Parse(topic)
	require.NoError(t, err)
	return req
}
