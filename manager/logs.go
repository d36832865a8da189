package manager

import (
	"context"
	"sort"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/longhorn/nvmeof-gateway/engineapi"
	"github.com/longhorn/nvmeof-gateway/types"
	"github.com/longhorn/nvmeof-gateway/util/errno"
)

// nvmfLogFlags returns the sorted engine log flags that belong to the
// fabrics target.
func (m *GatewayManager) nvmfLogFlags() (map[string]bool, []string, error) {
	flags, err := m.engine.LogGetFlags()
	if err != nil {
		return nil, nil, err
	}
	names := []string{}
	for name := range flags {
		if strings.HasPrefix(name, types.NvmfLogFlagPrefix) {
			names = append(names, name)
		}
	}
	sort.Strings(names)
	return flags, names, nil
}

// setNvmfLogFlags sets or clears every nvmf log flag and reports whether
// all of them were accepted.
func (m *GatewayManager) setNvmfLogFlags(log logrus.FieldLogger, enable bool) (bool, error) {
	_, names, err := m.nvmfLogFlags()
	if err != nil {
		return false, err
	}
	all := true
	for _, name := range names {
		var ok bool
		if enable {
			ok, err = m.engine.LogSetFlag(name)
		} else {
			ok, err = m.engine.LogClearFlag(name)
		}
		if err != nil {
			return false, err
		}
		log.Debugf("Log flag %v enabled: %v, result: %v", name, enable, ok)
		all = all && ok
	}
	return all, nil
}

func (m *GatewayManager) SetLogFlags(ctx context.Context, req *types.SetLogFlagsRequest) error {
	op := newLiveOperation(ctx)
	log := m.logger.WithField("operation", "set_log_flags")

	level := types.DefaultLogLevel
	if req.LogLevel != "" {
		l, ok := types.ParseLogLevel(req.LogLevel)
		if !ok {
			return m.failure(log, errno.ENOKEY, "Unknown log level %s", req.LogLevel)
		}
		level = l
	}
	printLevel := types.DefaultLogPrintLevel
	if req.PrintLevel != "" {
		l, ok := types.ParseLogLevel(req.PrintLevel)
		if !ok {
			return m.failure(log, errno.ENOKEY, "Unknown print level %s", req.PrintLevel)
		}
		printLevel = l
	}
	log.Infof("Received request to set SPDK nvmf logs: log_level: %v, print_level: %v", level, printLevel)

	return m.execute(op, func() error {
		flagsOK, err := m.setNvmfLogFlags(log, true)
		var levelOK, printOK bool
		if err == nil {
			levelOK, err = m.engine.LogSetLevel(string(level))
		}
		if err == nil {
			printOK, err = m.engine.LogSetPrintLevel(string(printLevel))
		}
		if err != nil {
			if _, clearErr := m.setNvmfLogFlags(log, false); clearErr != nil {
				log.WithError(clearErr).Warn("Failed to clear SPDK nvmf log flags")
			}
			err = engineapi.TranslateError(err, "Failure setting SPDK log levels", errno.EINVAL)
			log.Error(err.Error())
			return err
		}

		switch {
		case !levelOK:
			return m.failure(log, errno.EINVAL, "Failure setting SPDK log level")
		case !printOK:
			return m.failure(log, errno.EINVAL, "Failure setting SPDK print log level")
		case !flagsOK:
			return m.failure(log, errno.EINVAL, "Failure setting some SPDK nvmf log flags")
		}
		return nil
	})
}

func (m *GatewayManager) DisableLogFlags(ctx context.Context, req *types.DisableLogFlagsRequest) error {
	op := newLiveOperation(ctx)
	log := m.logger.WithField("operation", "disable_log_flags")
	log.Info("Received request to disable SPDK nvmf logs")

	return m.execute(op, func() error {
		ok, err := m.setNvmfLogFlags(log, false)
		if err == nil && ok {
			ok, err = m.engine.LogSetLevel(string(types.DefaultLogLevel))
		}
		if err == nil && ok {
			ok, err = m.engine.LogSetPrintLevel(string(types.DefaultLogPrintLevel))
		}
		if err := engineFailure(ok, err, "Failure in disable SPDK nvmf log flags"); err != nil {
			log.Error(err.Error())
			return err
		}
		return nil
	})
}

func (m *GatewayManager) GetLogFlags(ctx context.Context, req *types.GetLogFlagsRequest) (*types.LogFlagsInfo, error) {
	op := newLiveOperation(ctx)
	log := m.logger.WithField("operation", "get_log_flags")
	log.Info("Received request to get SPDK nvmf log flags and level")

	info := &types.LogFlagsInfo{NvmfLogFlags: []types.LogFlag{}}
	err := m.query(op, func() error {
		flags, names, err := m.nvmfLogFlags()
		if err == nil {
			for _, name := range names {
				info.NvmfLogFlags = append(info.NvmfLogFlags, types.LogFlag{Name: name, Enabled: flags[name]})
			}
			info.LogLevel, err = m.engine.LogGetLevel()
		}
		if err == nil {
			info.LogPrintLevel, err = m.engine.LogGetPrintLevel()
		}
		if err != nil {
			err = engineapi.TranslateError(err, "Failure getting SPDK log levels and nvmf log flags", errno.ENOKEY)
			log.Error(err.Error())
			return err
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return info, nil
}
