package loader

import (
	"go-expanded-storage/internal/capability"
	"go-expanded-storage/internal/model"
)

// registerMenu adds the source to the configuration menu when any of its
// storages allows player config.
func (l *Loader) registerMenu(manifest model.Manifest, defs []*model.StorageDefinition) {
	if l.opts.Menu == nil {
		return
	}
	configurable := false
	for _, def := range defs {
		if def.AllowsPlayerConfig() {
			configurable = true
			break
		}
	}
	if !configurable {
		return
	}

	menu := l.opts.Menu
	id := manifest.ID()

	revert := func() {
		for _, def := range defs {
			def.Config.Capacity = def.Capacity
			def.Config.EnabledFeatures = def.EnabledFeatures.Clone()
			if !l.opts.DisableCapabilities {
				l.enabler.Refresh(def, l.features)
			}
		}
		l.dirty[id] = true
	}
	save := func() {
		if err := l.Save(id); err != nil {
			l.logger.Error("Failed to save config from menu", "source", string(id), "error", err)
		}
	}
	menu.Register(manifest, revert, save)

	for _, def := range defs {
		menu.AddPageLink(manifest, def.Name, def.Name)
	}

	for _, def := range defs {
		if !def.AllowsPlayerConfig() {
			continue
		}
		l.addPage(manifest, def)
	}
}

func (l *Loader) addPage(manifest model.Manifest, def *model.StorageDefinition) {
	menu := l.opts.Menu
	id := manifest.ID()
	cfg := def.Config

	menu.StartPage(manifest, def.Name)
	menu.AddIntOption(manifest, capability.CapacityOption.Name, capability.CapacityOption.Tooltip,
		func() int { return cfg.Capacity },
		func(value int) {
			cfg.Capacity = value
			l.dirty[id] = true
			if !l.opts.DisableCapabilities && len(def.FilterItems) == 0 {
				l.enabler.SetCapacity(def.Name, value, l.features)
			}
		})

	for _, opt := range capability.Toggles {
		feature := opt.Feature
		menu.AddBoolOption(manifest, opt.Name, opt.Tooltip,
			func() bool { return cfg.EnabledFeatures.Has(feature) },
			func(value bool) {
				cfg.SetFeature(feature, value)
				l.dirty[id] = true
				if !l.opts.DisableCapabilities {
					l.enabler.SetToggle(def.Name, feature, value, l.features)
				}
			})
	}
}
