package providers

import (
	"github.com/samber/do/v2"

	"github.com/fosse-media/fosse/internal/config"
	"github.com/fosse-media/fosse/internal/logger"
	"github.com/fosse-media/fosse/internal/metrics"
	"github.com/fosse-media/fosse/internal/scanner"
	"github.com/fosse-media/fosse/internal/scanner/probe"
)

// ProvideExtractor provides the ffprobe metadata extractor.
func ProvideExtractor(i do.Injector) (probe.Extractor, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)

	return probe.NewFFprobe(cfg.FFprobePath, log.Component("probe")), nil
}

// ProvideMetrics provides the Prometheus collectors.
func ProvideMetrics(i do.Injector) (*metrics.Metrics, error) {
	return metrics.New(), nil
}

// ProvideScanner provides the scanner, wired to the search index and
// metrics.
func ProvideScanner(i do.Injector) (*scanner.Scanner, error) {
	cfg := do.MustInvoke[*config.Config](i)
	log := do.MustInvoke[*logger.Logger](i)
	storeHandle := do.MustInvoke[*StoreHandle](i)
	searchHandle := do.MustInvoke[*SearchIndexHandle](i)
	extractor := do.MustInvoke[probe.Extractor](i)
	m := do.MustInvoke[*metrics.Metrics](i)

	s := scanner.New(storeHandle.Store, extractor, scanner.Options{
		NotebookFilename: cfg.NotebookFilename,
		VideoExtensions:  cfg.VideoExtensions,
		Workers:          cfg.Scan.Workers,
		SkipHiddenDirs:   cfg.Scan.SkipHiddenDirs,
	}, log.Component("scanner"))

	if searchHandle.Enabled() {
		s.SetIndexer(searchHandle.Index)
	}
	s.SetRecorder(m)

	return s, nil
}
