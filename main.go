package main

import (
	"flag"
	"fmt"
	"os"
	"strconv"
	"strings"

	"github.com/golang/glog"
	"github.com/samber/lo"
	"github.com/vietanhduong/minsyms/pkg/minsym"
	"github.com/vietanhduong/minsyms/pkg/minsym/elf"
	"github.com/vietanhduong/minsyms/pkg/proc"
)

func main() {
	var (
		pid      int
		addrs    string
		names    string
		sfile    string
		demangle string
		textOnly bool
	)
	flag.IntVar(&pid, "pid", -1, "Load every executable mapping of this process")
	flag.StringVar(&addrs, "addr", "", "Comma separated list of addresses to resolve (hex with 0x prefix or decimal)")
	flag.StringVar(&names, "name", "", "Comma separated list of symbol names to look up")
	flag.StringVar(&sfile, "source-file", "", "Restrict file-local name lookups to this source file")
	flag.StringVar(&demangle, "demangle", string(minsym.DemangleFull), "Demangle mode: NONE, SIMPLIFIED, TEMPLATES, FULL")
	flag.BoolVar(&textOnly, "text-only", false, "Only load code symbols")
	flag.Parse()

	if pid == -1 && flag.NArg() == 0 {
		glog.Errorf("No pid or elf file is specified")
		os.Exit(1)
	}

	pcs, err := parseAddrs(addrs)
	if err != nil {
		glog.Errorf("Failed to parse addresses: %v", err)
		os.Exit(1)
	}

	imgOpts := &minsym.ImageOptions{
		Demangler: minsym.DemangleType(strings.ToUpper(demangle)).Demangler(),
	}
	reg := minsym.NewRegistry(nil)

	for _, fpath := range flag.Args() {
		loadImage(reg, fpath, nil, imgOpts, &elf.LoadOptions{TextOnly: textOnly})
	}
	if pid != -1 {
		maps, err := proc.ParseProcMap(pid)
		if err != nil {
			glog.Errorf("Failed to parse proc maps of %d: %v", pid, err)
			os.Exit(1)
		}
		for _, m := range maps {
			loadImage(reg, proc.ModulePath(pid, m.Pathname), m, imgOpts, &elf.LoadOptions{TextOnly: textOnly})
		}
	}

	if reg.Len() == 0 {
		glog.Errorf("No image with symbols was loaded")
		os.Exit(1)
	}

	for _, pc := range pcs {
		m, ok := reg.LookupByPC(pc)
		if !ok {
			fmt.Printf("0x%x\t??\n", pc)
			continue
		}
		fmt.Printf("0x%x\t%s+0x%x\t%s\n", pc, m.Symbol.PrintName(), pc-m.Symbol.Address, m.Image.Name())
		if target, ok := reg.FindTrampolineTarget(pc); ok {
			fmt.Printf("\ttrampoline -> 0x%x\n", target)
		}
	}

	for _, name := range splitList(names) {
		m, ok := reg.LookupByName(name, sfile, nil)
		if !ok {
			fmt.Printf("%s\t??\n", name)
			continue
		}
		fmt.Printf("%s\t0x%x\t%s\t%s\n", name, m.Symbol.Address, m.Symbol.Kind, m.Image.Name())
	}
}

// loadImage registers the symbols of the ELF file at fpath. When the file
// backs the mapping m, symbols are relocated to its load address.
func loadImage(reg *minsym.Registry, fpath string, m *proc.Map, imgOpts *minsym.ImageOptions, opts *elf.LoadOptions) {
	f, err := elf.Open(fpath)
	if err != nil {
		glog.Warningf("Failed to open %s: %v", fpath, err)
		return
	}
	defer f.Close()

	if m != nil {
		base, ok := f.Base(m.StartAddr, m.FileOffset)
		if !ok {
			glog.Warningf("Unable to determine base of elf path %s", fpath)
			return
		}
		opts.Base = base
	}
	img, err := f.Image(imgOpts, opts)
	if err != nil {
		glog.Warningf("Failed to load %s: %v", fpath, err)
		return
	}
	if err = reg.Add(img); err != nil {
		glog.Warningf("Failed to register %s: %v", fpath, err)
		return
	}
	buildID := "none"
	if id := f.BuildId(); id != nil {
		buildID = id.Id
	}
	glog.Infof("Loaded %d symbols from %s (build id %s)", img.Len(), fpath, buildID)
}

func parseAddrs(s string) ([]uint64, error) {
	var ret []uint64
	for _, field := range splitList(s) {
		pc, err := strconv.ParseUint(field, 0, 64)
		if err != nil {
			return nil, fmt.Errorf("parse address %q: %w", field, err)
		}
		ret = append(ret, pc)
	}
	return ret, nil
}

func splitList(s string) []string {
	fields := lo.Map(strings.Split(s, ","), func(f string, _ int) string { return strings.TrimSpace(f) })
	return lo.Filter(fields, func(f string, _ int) bool { return f != "" })
}
