package server

import (
	"context"
	"strings"
	"time"

	"go.uber.org/zap"

	"clihub/internal/app/catalog"
	"clihub/internal/domain"
)

// authGate memoizes login probes of external services in the auth store.
type authGate struct {
	store    domain.AuthStore
	executor domain.Executor
	now      func() time.Time
	logger   *zap.Logger
}

// check returns the memoized status of svc, probing when the record is
// missing, older than svc.MaxAge, or refresh is set.
func (g *authGate) check(ctx context.Context, svc catalog.AuthService, refresh bool) (domain.AuthStatusRecord, error) {
	if !refresh {
		rec, ok, err := g.store.GetStatus(ctx, svc.Name)
		if err != nil {
			return domain.AuthStatusRecord{}, err
		}
		if ok && (svc.MaxAge <= 0 || g.now().Sub(rec.LastChecked) < svc.MaxAge) {
			return rec, nil
		}
	}
	return g.probe(ctx, svc)
}

func (g *authGate) probe(ctx context.Context, svc catalog.AuthService) (domain.AuthStatusRecord, error) {
	res, err := g.executor.Execute(ctx, domain.ExecutionRequest{
		Tool:    svc.Binary,
		Args:    svc.Args,
		Timeout: svc.Timeout,
		Format:  domain.FormatText,
	})
	meta := map[string]string{"binary": svc.Binary}
	if err != nil {
		code, _ := domain.CodeFrom(err)
		if code != domain.CodeTimeout {
			return domain.AuthStatusRecord{}, err
		}
		meta["detail"] = "probe timed out"
	} else if detail := firstLine(res.Stderr, res.Stdout); detail != "" {
		meta["detail"] = detail
	}
	authenticated := err == nil && res.ExitCode == 0
	rec, err := g.store.SetStatus(ctx, svc.Name, authenticated, meta)
	if err != nil {
		return domain.AuthStatusRecord{}, err
	}
	g.logger.Info("auth probed", zap.String("service", svc.Name), zap.Bool("authenticated", authenticated))
	return rec, nil
}

func firstLine(streams ...[]byte) string {
	for _, stream := range streams {
		for _, line := range strings.Split(string(stream), "\n") {
			if line = strings.TrimSpace(line); line != "" {
				return line
			}
		}
	}
	return ""
}
