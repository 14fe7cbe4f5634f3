// Command jobwait submits a generation to the gateway, or attaches to an
// existing job, and prints the artifact URL once the job settles.
//
//	jobwait -job <id>
//	jobwait -op model -source r2://user.jpg
//	jobwait -op tryon -model r2://m.jpg -garment r2://g.jpg -pose front
//	jobwait -op pose -image r2://m.jpg -pose side
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"lookgen-gateway/internal/poller"
	"lookgen-gateway/pkg/logging/logging"
)

const (
	exitOK            = 0
	exitFailed        = 1
	exitUsage         = 2
	exitIndeterminate = 3
)

func main() {
	os.Exit(run())
}

func run() int {
	var (
		base    = flag.String("base", envOr("GATEWAY_URL", "http://localhost:8080"), "gateway base URL")
		jobID   = flag.String("job", "", "existing job id to wait on")
		op      = flag.String("op", "", "operation to submit: model | tryon | pose")
		source  = flag.String("source", "", "source image ref (model)")
		model   = flag.String("model", "", "model image ref (tryon)")
		garment = flag.String("garment", "", "garment image ref (tryon)")
		image   = flag.String("image", "", "image ref (pose)")
		pose    = flag.String("pose", "front", "pose key (tryon, pose)")
		timeout = flag.Duration("timeout", poller.DefaultPolicy().Timeout, "give up after this long")
	)
	flag.Parse()

	logger := logging.DefaultLogger()
	defer logger.Sync()

	policy := poller.DefaultPolicy()
	policy.Timeout = *timeout
	client := poller.New(*base, poller.WithPolicy(policy), poller.WithLogger(logger))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	start := time.Now()
	var (
		url string
		err error
	)
	switch {
	case *jobID != "":
		url, err = client.Wait(ctx, *jobID)
	case *op == "model":
		url, err = client.GenerateModel(ctx, *source)
	case *op == "tryon":
		url, err = client.ApplyGarment(ctx, *model, *garment, *pose)
	case *op == "pose":
		url, err = client.ChangePose(ctx, *image, *pose)
	default:
		flag.Usage()
		return exitUsage
	}

	var failed *poller.JobFailedError
	switch {
	case err == nil:
		logger.Info("job settled", zap.Duration("elapsed", time.Since(start)))
		fmt.Println(url)
		return exitOK
	case errors.Is(err, poller.ErrIndeterminate):
		logger.Warn("job did not settle in time", zap.Duration("timeout", *timeout))
		return exitIndeterminate
	case errors.As(err, &failed):
		logger.Error("job failed", zap.String("job_id", failed.JobID), zap.String("code", failed.Code), zap.String("error", failed.Message))
		return exitFailed
	default:
		logger.Error("request failed", zap.Error(err))
		return exitFailed
	}
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
