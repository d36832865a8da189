package manager

import (
	"sync"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"

	"github.com/longhorn/nvmeof-gateway/engineapi"
	"github.com/longhorn/nvmeof-gateway/types"
	"github.com/longhorn/nvmeof-gateway/util/errno"
)

// ClusterPool hands out backing cluster connections. Each connection serves
// up to capacity devices. Connections are never released.
type ClusterPool struct {
	engine   engineapi.Engine
	userID   string
	coreMask string
	capacity int

	mutex    *sync.Mutex
	clusters map[string]int
	current  string
}

func NewClusterPool(engine engineapi.Engine, userID, coreMask string, capacity int) (*ClusterPool, error) {
	if capacity < 1 {
		return nil, errors.Errorf("invalid configuration: spdk.bdevs_per_cluster %v < 1", capacity)
	}
	return &ClusterPool{
		engine:   engine,
		userID:   userID,
		coreMask: coreMask,
		capacity: capacity,

		mutex:    &sync.Mutex{},
		clusters: map[string]int{},
	}, nil
}

// Acquire returns the cluster context the next device should use and counts
// the device against it.
func (p *ClusterPool) Acquire() (string, error) {
	p.mutex.Lock()
	defer p.mutex.Unlock()

	if p.current != "" && p.clusters[p.current] < p.capacity {
		p.clusters[p.current]++
		return p.current, nil
	}

	name := types.GetClusterContextName(len(p.clusters))
	logrus.Infof("Allocating cluster context %v", name)
	ret, err := p.engine.BdevRbdRegisterCluster(name, p.userID, p.coreMask)
	if err != nil {
		return "", engineapi.TranslateError(err, "Failure allocating cluster context "+name, errno.EINVAL)
	}
	if ret == "" {
		return "", engineapi.FalsyResultError("Failure allocating cluster context " + name)
	}
	p.current = name
	p.clusters[name] = 1
	return name, nil
}

// Stats returns the number of devices counted against each context.
func (p *ClusterPool) Stats() map[string]int {
	p.mutex.Lock()
	defer p.mutex.Unlock()
	ret := make(map[string]int, len(p.clusters))
	for name, count := range p.clusters {
		ret[name] = count
	}
	return ret
}
