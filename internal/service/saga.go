package service

import (
	"context"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"content-api/internal/core/logger"
	"content-api/internal/domain"
)

// step is one write of a multi-store operation. compensate undoes do and may be nil.
type step struct {
	name         string
	do           func(ctx context.Context) error
	compensation string
	compensate   func(ctx context.Context) error
}

type saga struct {
	name string
	log  *zap.Logger
}

// run executes steps in order and stops at the first failure. The completed
// steps are then compensated in reverse order. The primary error is always
// returned; failed compensations are logged and attached as a CompensationError.
func (s saga) run(ctx context.Context, steps ...step) error {
	done := make([]step, 0, len(steps))
	for _, st := range steps {
		if err := st.do(ctx); err != nil {
			return s.unwind(ctx, done, st.name, err)
		}
		done = append(done, st)
	}
	return nil
}

func (s saga) unwind(ctx context.Context, done []step, failed string, primary error) error {
	// compensation must outlive a cancelled request
	ctx = context.WithoutCancel(ctx)
	log := logger.For(ctx, s.log)

	var (
		cerr     error
		lastStep string
	)
	for i := len(done) - 1; i >= 0; i-- {
		st := done[i]
		if st.compensate == nil {
			continue
		}
		err := st.compensate(ctx)
		compensations.WithLabelValues(s.name, st.compensation, outcome(err)).Inc()
		if err != nil {
			log.Error("compensation failed",
				zap.String("saga", s.name),
				zap.String("failed_step", failed),
				zap.String("compensation", st.compensation),
				zap.NamedError("primary", primary),
				zap.Error(err),
			)
			cerr = multierr.Append(cerr, err)
			lastStep = st.compensation
			continue
		}
		log.Info("compensated",
			zap.String("saga", s.name),
			zap.String("failed_step", failed),
			zap.String("compensation", st.compensation),
		)
	}
	if cerr != nil {
		return &domain.CompensationError{Err: primary, Step: lastStep, Compensation: cerr}
	}
	return primary
}

func outcome(err error) string {
	if err != nil {
		return "failed"
	}
	return "ok"
}
