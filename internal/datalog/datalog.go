package datalog

import (
	"fmt"

	"ewh2grid/internal/config"
	"ewh2grid/pkg/cta2045"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// Record is one line of the DER data log. The timestamp is added by the
// sink encoder, the rest is written tab-separated in field order.
type Record struct {
	ExportWatts       uint32
	ExportPower       uint32
	ExportEnergy      uint64
	ImportWatts       uint32
	ImportPower       uint32
	ImportEnergy      uint64
	RatedImportEnergy uint64
	RealImportPower   uint32
	DeviceState       cta2045.OperationalState
}

func (r Record) line() string {
	return fmt.Sprintf("%d\t%d\t%d\t%d\t%d\t%d\t%d\t%d\t%s",
		r.ExportWatts, r.ExportPower, r.ExportEnergy,
		r.ImportWatts, r.ImportPower, r.ImportEnergy,
		r.RatedImportEnergy, r.RealImportPower, r.DeviceState)
}

// Writer appends records to the configured data log file. A Writer built
// from an empty path is disabled and every Append is a no-op, so a broken
// or absent log sink never stalls the control loop.
type Writer struct {
	logger *zap.Logger
}

func NewWriter(cfg config.DatalogConfig) (*Writer, error) {
	if cfg.Path == "" {
		return &Writer{}, nil
	}

	zapCfg := zap.NewProductionConfig()
	zapCfg.Encoding = "console"
	zapCfg.EncoderConfig = zapcore.EncoderConfig{
		TimeKey:          "ts",
		MessageKey:       "record",
		LineEnding:       zapcore.DefaultLineEnding,
		EncodeTime:       zapcore.ISO8601TimeEncoder,
		ConsoleSeparator: "\t",
	}
	zapCfg.OutputPaths = []string{cfg.Path}
	zapCfg.ErrorOutputPaths = []string{"stderr"}

	logger, err := zapCfg.Build()
	if err != nil {
		return nil, fmt.Errorf("datalog: open %s: %w", cfg.Path, err)
	}
	return &Writer{logger: logger}, nil
}

func (w *Writer) Enabled() bool {
	return w.logger != nil
}

func (w *Writer) Append(r Record) {
	if w.logger == nil {
		return
	}
	w.logger.Info(r.line())
}

func (w *Writer) Close() {
	if w.logger != nil {
		_ = w.logger.Sync()
	}
}
