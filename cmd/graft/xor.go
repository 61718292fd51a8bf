package main

import (
	"context"
	"flag"
	"fmt"
	"io"
	"log/slog"
	"math/rand"
	"os"
	"os/signal"
	"strconv"

	"github.com/born-ml/graft/internal/graph"
	"github.com/born-ml/graft/internal/nn"
	"github.com/born-ml/graft/internal/optim"
	"github.com/born-ml/graft/internal/serialization"
	"github.com/born-ml/graft/internal/tensor"
	"github.com/born-ml/graft/internal/train"
)

type xorOptions struct {
	epochs    int
	hidden    int
	lr        float64
	optimizer string
	workers   int
	seed      int64
	logEvery  int
	dtype     string
	save      string
	snapshot  string
	verbose   bool
}

func runXOR(args []string, stdout, stderr io.Writer) error {
	var opts xorOptions
	fs := flag.NewFlagSet("xor", flag.ContinueOnError)
	fs.SetOutput(stderr)
	fs.IntVar(&opts.epochs, "epochs", 500, "Number of passes over the four XOR samples")
	fs.IntVar(&opts.hidden, "hidden", 8, "Hidden layer width")
	fs.Float64Var(&opts.lr, "lr", 0.05, "Learning rate")
	fs.StringVar(&opts.optimizer, "optimizer", "adam", "Update rule: sgd, momentum, adagrad, rmsprop or adam")
	fs.IntVar(&opts.workers, "workers", 1, "Goroutines running per-sample forward passes")
	fs.Int64Var(&opts.seed, "seed", 1, "Seed for weight initialization and shuffling")
	fs.IntVar(&opts.logEvery, "log-every", 100, "Log every n-th epoch")
	fs.StringVar(&opts.dtype, "dtype", tensor.DTypeName, "Storage type of -save: float32 or float64")
	fs.StringVar(&opts.save, "save", "", "Write the trained parameters to this .graft file")
	fs.StringVar(&opts.snapshot, "snapshot", "", "Write the trained parameters as a protobuf snapshot")
	fs.BoolVar(&opts.verbose, "v", false, "Enable debug logging")
	if err := fs.Parse(args); err != nil {
		return err
	}

	level := slog.LevelInfo
	if opts.verbose {
		level = slog.LevelDebug
	}
	logger := slog.New(slog.NewTextHandler(stderr, &slog.HandlerOptions{Level: level}))

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt)
	defer stop()
	return trainXOR(ctx, opts, stdout, logger)
}

func trainXOR(ctx context.Context, opts xorOptions, stdout io.Writer, logger *slog.Logger) error {
	rule, err := newRule(opts.optimizer, opts.lr)
	if err != nil {
		return err
	}

	rng := rand.New(rand.NewSource(opts.seed))
	model := graph.NewPipeline("xor",
		nn.NewAffine(2, opts.hidden, rng),
		nn.NewTanh(),
		nn.NewAffine(opts.hidden, 1, rng),
		nn.NewSigmoid(),
	)

	trainer, err := train.New(model, nn.NewMSELoss(), optim.New(rule), train.Config{
		Epochs:    opts.epochs,
		BatchSize: 4,
		Workers:   opts.workers,
		Shuffle:   true,
		Seed:      opts.seed,
		LogEvery:  opts.logEvery,
		Logger:    logger,
	})
	if err != nil {
		return err
	}

	samples, err := xorSamples()
	if err != nil {
		return err
	}
	history, err := trainer.Fit(ctx, samples)
	if err != nil {
		return err
	}

	fmt.Fprintf(stdout, "final loss: %.6f after %d updates (%s)\n", history.Final(), trainer.Optimizer().Step(), rule.Name())
	compressed := model.Compress()
	for _, s := range samples {
		pred, err := trainer.Predict(s.Input)
		if err != nil {
			return err
		}
		fast, err := compressed.Forward(s.Input)
		if err != nil {
			return err
		}
		fmt.Fprintf(stdout, "%v -> %.4f (fused %.4f, want %v)\n",
			s.Input.Data(), pred[0].Data()[0], fast[0].Data()[0], s.Label.Data()[0])
	}

	if opts.save != "" {
		err := serialization.SaveFile(opts.save, model.NamedParameters(), serialization.WriteOptions{
			Model: model.Name(),
			DType: opts.dtype,
			Metadata: map[string]string{
				"epochs":    strconv.Itoa(opts.epochs),
				"optimizer": rule.Name(),
				"loss":      strconv.FormatFloat(history.Final(), 'g', 6, 64),
			},
		})
		if err != nil {
			return fmt.Errorf("save %s: %w", opts.save, err)
		}
		logger.Info("saved model", "path", opts.save, "dtype", opts.dtype)
	}
	if opts.snapshot != "" {
		b := serialization.MarshalSnapshot(model.Name(), model.NamedParameters())
		if err := os.WriteFile(opts.snapshot, b, 0o644); err != nil {
			return fmt.Errorf("snapshot: %w", err)
		}
		logger.Info("saved snapshot", "path", opts.snapshot, "bytes", len(b))
	}
	return nil
}

func newRule(name string, lr float64) (optim.Rule, error) {
	switch name {
	case "sgd":
		return optim.NewSGD(optim.SGDConfig{LR: lr}), nil
	case "momentum":
		return optim.NewSGD(optim.SGDConfig{LR: lr, Momentum: 0.9}), nil
	case "adagrad":
		return optim.NewAdaGrad(optim.AdaGradConfig{LR: lr}), nil
	case "rmsprop":
		return optim.NewRMSProp(optim.RMSPropConfig{LR: lr}), nil
	case "adam":
		return optim.NewAdam(optim.AdamConfig{LR: lr}), nil
	default:
		return nil, fmt.Errorf("unknown optimizer %q", name)
	}
}

func xorSamples() ([]train.Sample, error) {
	rows := [][3]tensor.Scalar{{0, 0, 0}, {0, 1, 1}, {1, 0, 1}, {1, 1, 0}}
	samples := make([]train.Sample, 0, len(rows))
	for _, row := range rows {
		x, err := tensor.FromSlice(row[:2], tensor.Shape{2}, 1)
		if err != nil {
			return nil, err
		}
		y, err := tensor.FromSlice(row[2:], tensor.Shape{1}, 1)
		if err != nil {
			return nil, err
		}
		samples = append(samples, train.Sample{Input: x, Label: y})
	}
	return samples, nil
}
