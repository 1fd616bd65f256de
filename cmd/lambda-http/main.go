package main

// Build the Lambda handler binary:
//   GOOS=linux GOARCH=arm64 CGO_ENABLED=0 go build -o bootstrap ./cmd/lambda-http

import (
	"context"
	"encoding/json"
	"net/http"
	"sync"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"

	"resume-ats/internal/bootstrap"
	"resume-ats/internal/shared/config"
	"resume-ats/internal/shared/server/respond"
	"resume-ats/internal/shared/telemetry"
)

// proxy is built on the first invocation. A failed build is retried on the
// next one instead of poisoning the warm container.
var (
	proxyMu sync.Mutex
	proxy   *ginadapter.GinLambdaV2
)

func getProxy() (*ginadapter.GinLambdaV2, error) {
	proxyMu.Lock()
	defer proxyMu.Unlock()
	if proxy != nil {
		return proxy, nil
	}
	cfg, err := config.Load()
	if err != nil {
		return nil, err
	}
	app, err := bootstrap.Build(cfg)
	if err != nil {
		return nil, err
	}
	proxy = ginadapter.NewV2(app.Router)
	telemetry.Info("lambda.http.cold_start", map[string]any{"env": cfg.Env, "provider": app.Provider.Name()})
	return proxy, nil
}

func handler(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
	p, err := getProxy()
	if err != nil {
		telemetry.Error("lambda.http.bootstrap_failed", map[string]any{
			"error":      err.Error(),
			"request_id": req.RequestContext.RequestID,
		})
		return unavailable(), nil
	}
	return p.ProxyWithContext(ctx, req)
}

func unavailable() events.APIGatewayV2HTTPResponse {
	body, _ := json.Marshal(respond.ErrorResponse{Error: respond.ErrorBody{
		Code:    "internal_error",
		Message: "service is starting up, retry shortly",
	}})
	return events.APIGatewayV2HTTPResponse{
		StatusCode: http.StatusServiceUnavailable,
		Body:       string(body),
		Headers: map[string]string{
			"Content-Type": "application/json",
			"Retry-After":  "1",
		},
	}
}

func main() {
	lambda.Start(handler)
}
