package fsbackend

import (
	"github.com/goabstract/refdb/ginternals"
	"github.com/goabstract/refdb/internal/errutil"
	"golang.org/x/xerrors"
	"gopkg.in/ini.v1"
)

// .git/config config keys
const (
	cfgCore                = "core"
	cfgCoreFormatVersion   = "repositoryformatversion"
	cfgCoreFileMode        = "filemode"
	cfgCoreBare            = "bare"
	cfgCoreLogAllRefUpdate = "logallrefupdates"
)

// setDefaultCfg sets and persists the default git configuration for
// the repository
func (b *Backend) setDefaultCfg() (err error) {
	cfg := ini.Empty()

	core, err := cfg.NewSection(cfgCore)
	if err != nil {
		return xerrors.Errorf("could not create core section: %w", err)
	}
	coreCfg := map[string]string{
		cfgCoreFormatVersion:   "0",
		cfgCoreFileMode:        "true",
		cfgCoreBare:            "false",
		cfgCoreLogAllRefUpdate: "true",
	}
	for k, v := range coreCfg {
		if _, err := core.NewKey(k, v); err != nil {
			return xerrors.Errorf("could not set %s: %w", k, err)
		}
	}

	f, err := b.fs.Create(ginternals.ConfigPath(b.config))
	if err != nil {
		return xerrors.Errorf("could not create config file: %w", err)
	}
	defer errutil.Close(f, &err)

	if _, err = cfg.WriteTo(f); err != nil {
		return xerrors.Errorf("could not persist config file: %w", err)
	}
	return nil
}
