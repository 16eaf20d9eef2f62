package main

import (
	"fmt"
	"io"

	"github.com/ipfs/go-cid"

	"xdao.co/sas/events"
	"xdao.co/sas/storage/localfs"
)

func cmdEvent(args []string, out io.Writer, errOut io.Writer) int {
	if len(args) == 0 {
		fmt.Fprintln(errOut, "usage: sas event <decode|put|show> ...")
		return 2
	}
	switch args[0] {
	case "decode":
		return cmdEventDecode(args[1:], out, errOut)
	case "put":
		return cmdEventPut(args[1:], out, errOut)
	case "show":
		return cmdEventShow(args[1:], out, errOut)
	default:
		fmt.Fprintf(errOut, "unknown event subcommand: %s\n", args[0])
		return 2
	}
}

func openArchive(dir string) (*events.Archive, error) {
	if dir == "" {
		return nil, fmt.Errorf("missing --archive-dir")
	}
	cas, err := localfs.New(dir)
	if err != nil {
		return nil, err
	}
	return events.NewArchive(cas), nil
}

func printEvent(out io.Writer, e events.Event) {
	switch ev := e.(type) {
	case *events.CloseEvent:
		fmt.Fprintf(out, "%s\tschema=%s\tdata=%x\n", ev.Discriminator(), ev.Schema, ev.Data)
	case *events.CompressEvent:
		fmt.Fprintf(out, "%s\tpdas_closed=%t\trecords=%d\n", ev.Discriminator(), ev.PDAsClosed, len(ev.Records))
		for _, r := range ev.Records {
			fmt.Fprintf(out, "  schema=%s\tdata=%x\n", r.Schema, r.Data)
		}
	}
}

func cmdEventDecode(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("event decode", errOut)
	var dataHex string
	fs.StringVar(&dataHex, "data", "", "Event instruction data as hex")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	raw, err := hexFlag("data", dataHex)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	e, err := events.Decode(raw)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	printEvent(out, e)
	return 0
}

func cmdEventPut(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("event put", errOut)
	var dir, dataHex string
	fs.StringVar(&dir, "archive-dir", "", "Event archive directory")
	fs.StringVar(&dataHex, "data", "", "Event instruction data as hex")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	raw, err := hexFlag("data", dataHex)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	e, err := events.Decode(raw)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	a, err := openArchive(dir)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	if err := a.Emit(e); err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	ids := a.Index()
	fmt.Fprintln(out, ids[len(ids)-1])
	return 0
}

func cmdEventShow(args []string, out io.Writer, errOut io.Writer) int {
	fs := newFlagSet("event show", errOut)
	var dir, id string
	fs.StringVar(&dir, "archive-dir", "", "Event archive directory")
	fs.StringVar(&id, "cid", "", "Archived event CID")
	if err := fs.Parse(args); err != nil {
		return 2
	}
	c, err := cid.Decode(id)
	if err != nil {
		fmt.Fprintf(errOut, "invalid --cid: %v\n", err)
		return 2
	}
	a, err := openArchive(dir)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 2
	}
	e, err := a.Load(c)
	if err != nil {
		fmt.Fprintln(errOut, err)
		return 1
	}
	printEvent(out, e)
	return 0
}
