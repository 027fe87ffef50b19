package main

import (
	"sync"

	"github.com/carbocation/qpcr/archive"
	"github.com/carbocation/qpcr/rules"
)

type Global struct {
	log     logger
	store   *rules.Store
	archive *archive.Archive

	Site string

	// Guards the panel store. Load can write (it persists the default panel),
	// so only listing takes the read lock.
	m sync.RWMutex
}

type logger interface {
	Print(v ...interface{})
	Printf(format string, v ...interface{})
	Println(v ...interface{})
}

func (g *Global) LoadPanel(name string) (*rules.Panel, error) {
	g.m.Lock()
	defer g.m.Unlock()

	return g.store.Load(name)
}

func (g *Global) SavePanel(p *rules.Panel) error {
	g.m.Lock()
	defer g.m.Unlock()

	return g.store.Save(p)
}

func (g *Global) PanelNames() ([]string, error) {
	g.m.RLock()
	defer g.m.RUnlock()

	return g.store.Names()
}
