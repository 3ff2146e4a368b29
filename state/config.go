// Package state reads the HCL config file tree into one Config value.
package state

import (
	"path/filepath"
	"sync"
	"time"

	"github.com/hashicorp/hcl"
	"github.com/juju/errors"

	"github.com/hrpv/neeytele/helpers"
	"github.com/hrpv/neeytele/log2"
	"github.com/hrpv/neeytele/tele"
)

type Config struct {
	// includeSeen contains absolute paths to prevent include loops
	includeSeen map[string]struct{}
	// only used for Unmarshal, do not access
	XXX_Include []ConfigSource `hcl:"include"`

	BLE struct {
		// Address is the balancer MAC, empty means scan-only tools work but
		// the poller refuses to start.
		Address        string `hcl:"address"`
		ScanTimeoutSec int    `hcl:"scan_timeout_sec"`
	} `hcl:"ble"`

	Poll struct {
		IntervalSec       int `hcl:"interval_sec"`
		SettleSec         int `hcl:"settle_sec"`
		RequestTimeoutSec int `hcl:"request_timeout_sec"`
	} `hcl:"poll"`

	Tele tele.Config `hcl:"tele"`

	Web struct {
		Enable bool   `hcl:"enable"`
		Listen string `hcl:"listen"`
	} `hcl:"web"`

	LogDebug bool `hcl:"log_debug"`

	_copy_guard sync.Mutex //nolint:unused
}

type ConfigSource struct {
	Name     string `hcl:"name,key"`
	Optional bool   `hcl:"optional"`
}

func (c *Config) PollInterval() time.Duration {
	return helpers.IntSecondDefault(c.Poll.IntervalSec, 30*time.Second)
}
func (c *Config) PollSettle() time.Duration {
	return helpers.IntSecondDefault(c.Poll.SettleSec, 2*time.Second)
}
func (c *Config) PollRequestTimeout() time.Duration {
	return helpers.IntSecondDefault(c.Poll.RequestTimeoutSec, 10*time.Second)
}
func (c *Config) ScanTimeout() time.Duration {
	return helpers.IntSecondDefault(c.BLE.ScanTimeoutSec, 30*time.Second)
}

func (c *Config) read(log *log2.Log, fs FullReader, source ConfigSource, errs *[]error) {
	norm := fs.Normalize(source.Name)
	if _, ok := c.includeSeen[norm]; ok {
		log.Fatalf("config duplicate source=%s", source.Name)
	} else {
		log.Debugf("config reading source='%s' path=%s", source.Name, norm)
	}
	c.includeSeen[source.Name] = struct{}{}
	c.includeSeen[norm] = struct{}{}

	bs, err := fs.ReadAll(norm)
	if bs == nil && err == nil {
		if !source.Optional {
			err = errors.NotFoundf("config required name=%s path=%s", source.Name, norm)
			*errs = append(*errs, err)
			return
		}
	}
	if err != nil {
		*errs = append(*errs, errors.Annotatef(err, "config source=%s", source.Name))
		return
	}

	err = hcl.Unmarshal(bs, c)
	if err != nil {
		err = errors.Annotatef(err, "config unmarshal source=%s content='%s'", source.Name, string(bs))
		*errs = append(*errs, err)
		return
	}

	var includes []ConfigSource
	includes, c.XXX_Include = c.XXX_Include, nil
	for _, include := range includes {
		includeNorm := fs.Normalize(include.Name)
		if _, ok := c.includeSeen[includeNorm]; ok {
			err = errors.Errorf("config include loop: from=%s include=%s", source.Name, include.Name)
			*errs = append(*errs, err)
			continue
		}
		c.read(log, fs, include, errs)
	}
}

func ReadConfig(log *log2.Log, fs FullReader, names ...string) (*Config, error) {
	if len(names) == 0 {
		log.Fatalf("code error [Must]ReadConfig() without names")
	}

	if osfs, ok := fs.(*OsFullReader); ok {
		dir, name := filepath.Split(names[0])
		osfs.SetBase(dir)
		names[0] = name
	}
	c := &Config{
		includeSeen: make(map[string]struct{}),
	}
	errs := make([]error, 0, 8)
	for _, name := range names {
		c.read(log, fs, ConfigSource{Name: name}, &errs)
	}
	return c, helpers.FoldErrors(errs)
}

func MustReadConfig(log *log2.Log, fs FullReader, names ...string) *Config {
	c, err := ReadConfig(log, fs, names...)
	if err != nil {
		log.Fatalf("%s", errors.ErrorStack(err))
	}
	return c
}
