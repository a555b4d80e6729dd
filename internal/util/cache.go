package util

import (
	"sync"

	"github.com/skeema/tablecheck/internal/dbhost"
)

var instanceCache struct {
	sync.Mutex
	instances map[string]*dbhost.Instance
}

// NewInstance wraps dbhost.NewInstance such that identical requests return
// the same *dbhost.Instance.
func NewInstance(driver, dsn string) (*dbhost.Instance, error) {
	key := driver + ":" + dsn
	instanceCache.Lock()
	defer instanceCache.Unlock()
	if instance, ok := instanceCache.instances[key]; ok {
		return instance, nil
	}
	instance, err := dbhost.NewInstance(driver, dsn)
	if err != nil {
		return nil, err
	}
	if instanceCache.instances == nil {
		instanceCache.instances = make(map[string]*dbhost.Instance)
	}
	instanceCache.instances[key] = instance
	return instance, nil
}

// CloseCachedConnectionPools closes the connection pools of all Instances
// created via NewInstance, and empties the cache. Subsequent calls to
// NewInstance return new Instances.
func CloseCachedConnectionPools() {
	instanceCache.Lock()
	defer instanceCache.Unlock()
	for _, inst := range instanceCache.instances {
		inst.CloseAll()
	}
	instanceCache.instances = nil
}
