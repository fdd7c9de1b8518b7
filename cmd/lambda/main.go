package main

import (
	"context"
	"log"

	"github.com/aws/aws-lambda-go/events"
	"github.com/aws/aws-lambda-go/lambda"
	ginadapter "github.com/awslabs/aws-lambda-go-api-proxy/gin"
	"go.uber.org/zap"

	"blog-sync/internal/app"
	"blog-sync/internal/config"
	"blog-sync/internal/logging"
)

func main() {
	cfg, err := config.LoadConfig()
	if err != nil {
		log.Fatalf("load config: %v", err)
	}
	logger, err := logging.New(cfg.LogLevel, cfg.Environment)
	if err != nil {
		log.Fatalf("logger: %v", err)
	}
	defer logger.Sync()

	rt, err := app.New(context.Background(), cfg, logger)
	if err != nil {
		logger.Fatal("init", zap.Error(err))
	}
	adapter := ginadapter.NewV2(rt.Router)

	lambda.Start(func(ctx context.Context, req events.APIGatewayV2HTTPRequest) (events.APIGatewayV2HTTPResponse, error) {
		resp, err := adapter.ProxyWithContext(ctx, req)
		if err != nil {
			logger.Error("lambda proxy", zap.String("requestID", req.RequestContext.RequestID), zap.Error(err))
		}
		return resp, err
	})
}
