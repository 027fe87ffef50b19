// ctserve serves panel configurations and plate analyses over HTTP.
package main

import (
	"flag"
	"fmt"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"

	"github.com/carbocation/qpcr"
	"github.com/carbocation/qpcr/archive"
	"github.com/carbocation/qpcr/compileinfo"
	"github.com/carbocation/qpcr/rules"
)

func main() {
	compileinfo.Fprint(os.Stderr)

	errors := make(chan error, 1)
	sig := make(chan os.Signal, 1)
	signal.Notify(sig,
		os.Interrupt,
		syscall.SIGTERM,
	)

	panelDir := flag.String("panel-dir", "", "Folder holding panel JSON documents. Defaults to ./panels next to this binary.")
	archivePath := flag.String("archive", "", "(Optional) SQLite file in which to archive every analysis.")
	port := flag.Int("port", 9020, "Port for HTTP server")
	flag.Parse()

	if *panelDir == "" {
		dir, err := qpcr.DefaultPanelDir()
		if err != nil {
			log.Fatalln(err)
		}
		*panelDir = dir
	}

	global := &Global{
		Site:  "ctserve",
		log:   log.New(os.Stderr, log.Prefix(), log.Ldate|log.Ltime),
		store: rules.NewStore(qpcr.ExpandHome(*panelDir)),
	}

	if *archivePath != "" {
		a, err := archive.Open(qpcr.ExpandHome(*archivePath))
		if err != nil {
			log.Fatalln(err)
		}
		defer a.Close()
		global.archive = a
	}

	global.log.Println("Launching", global.Site, "with panels in", *panelDir)

	go func() {
		global.log.Println("Starting HTTP server on port", *port)
		if err := http.ListenAndServe(fmt.Sprintf(`:%d`, *port), router(global)); err != nil {
			errors <- err
		}
	}()

	select {
	case sigl := <-sig:
		global.log.Printf("Exit: %s\n", sigl.String())
	case err := <-errors:
		global.log.Println("Exiting due to error", err)
		if global.archive != nil {
			global.archive.Close()
		}
		os.Exit(1)
	}
}
