package manager

import (
	"context"
	"os"
	"strconv"

	"github.com/sirupsen/logrus"

	"github.com/longhorn/nvmeof-gateway/types"
	"github.com/longhorn/nvmeof-gateway/util"
	"github.com/longhorn/nvmeof-gateway/util/errno"
)

// GetGatewayInfo describes this gateway. It doesn't touch the engine so no
// lock is taken. The info is returned even when the CLI version check
// fails.
func (m *GatewayManager) GetGatewayInfo(ctx context.Context, req *types.GetGatewayInfoRequest) (*types.GatewayInfo, error) {
	log := m.logger.WithField("operation", "get_gateway_info")
	log.Infof("Received request to get gateway's info, CLI version: %v", req.CLIVersion)

	version := os.Getenv(types.EnvGatewayVersion)
	info := &types.GatewayInfo{
		CLIVersion: req.CLIVersion,
		Version:    version,
		Name:       m.cfg.Gateway.Name,
		Group:      m.cfg.Gateway.Group,
		Addr:       m.cfg.Gateway.Addr,
		Port:       strconv.Itoa(m.cfg.Gateway.Port),
		BoolStatus: true,
	}

	if err := checkCLIVersion(log, req.CLIVersion, version); err != nil {
		log.Error(err.Error())
		info.BoolStatus = false
		return info, err
	}
	return info, nil
}

// checkCLIVersion always validates the gateway's own version. A CLI version
// that can't be parsed is only reported, an older one is refused.
func checkCLIVersion(log logrus.FieldLogger, cliVersion, gatewayVersion string) error {
	if gatewayVersion == "" {
		return errno.New(errno.ENOKEY, "Gateway's version not found")
	}
	if _, err := util.CanonicalVersion(gatewayVersion); err != nil {
		return errno.New(errno.EINVAL, "Invalid gateway's version %s", gatewayVersion)
	}
	if cliVersion == "" {
		log.Warn("No CLI version specified, can't check version compatibility")
		return nil
	}
	cmp, err := util.CompareVersions(cliVersion, gatewayVersion)
	if err != nil {
		log.Warnf("Invalid CLI version %s, can't check version compatibility", cliVersion)
		return nil
	}
	if cmp < 0 {
		return errno.New(errno.EINVAL, "CLI version %s is older than gateway's version %s", cliVersion, gatewayVersion)
	}
	return nil
}
