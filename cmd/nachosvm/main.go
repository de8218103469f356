// Command nachosvm is a demonstration harness for the virtual-memory
// core in internal/vm: it loads a JSON configuration, builds an
// in-memory kernel (pkg/memsim), constructs one address space from a
// NOFF executable, and replays a memory-reference trace against it,
// reporting page-fault/page-write counters at the end.
//
// Grounded on the teacher's config-driven cmd/memoria/main.go startup
// sequence (load config, init logger, init module, serve) and on
// wechicken456-Go-Page-Replacement/main.go's trace-replay driver loop.
package main

import (
	"fmt"
	"os"

	"github.com/utnfrba-so/go-nachos-vm/config"
	"github.com/utnfrba-so/go-nachos-vm/internal/diag"
	"github.com/utnfrba-so/go-nachos-vm/internal/vm"
	"github.com/utnfrba-so/go-nachos-vm/log"
	"github.com/utnfrba-so/go-nachos-vm/pkg/memsim"
)

func main() {
	if len(os.Args) != 4 {
		fmt.Fprintf(os.Stderr, "usage: %s <config.json> <executable> <trace-file>\n", os.Args[0])
		os.Exit(1)
	}
	configPath, executablePath, tracePath := os.Args[1], os.Args[2], os.Args[3]

	if err := run(configPath, executablePath, tracePath); err != nil {
		log.For("main").WithError(err).Error("run failed")
		os.Exit(1)
	}
}

func run(configPath, executablePath, tracePath string) error {
	cfg, err := config.Load[Config](configPath)
	if err != nil {
		return err
	}
	log.SetLevel(cfg.LogLevel)
	logger := log.For("main")

	policyKind, err := parsePolicy(cfg.Policy)
	if err != nil {
		return err
	}

	fs := memsim.NewFileSystem()
	sched := memsim.NewScheduler()
	irq := memsim.NewInterruptController()
	mmu := memsim.NewMMU()

	thread := memsim.NewThread("main")
	sched.SetCurrentThread(thread)

	executableName := "EXE0"
	if err := loadHostFile(fs, executableName, executablePath); err != nil {
		return fmt.Errorf("loading executable: %w", err)
	}

	kernel := vm.NewKernel(vm.Config{
		PageSize:         cfg.PageSize,
		NumPhysPages:     cfg.NumPhysPages,
		MaxFramesPerProc: cfg.MaxFramesPerProc,
		UserStackSize:    cfg.UserStackSize,
	}, fs, sched, irq, mmu)

	as, err := vm.NewAddressSpace(kernel, executableName, vm.Options{
		Policy:          policyKind,
		RecordRefString: cfg.RecordRefString,
		RandomSeed:      cfg.RandomSeed,
	})
	if err != nil {
		return fmt.Errorf("constructing address space: %w", err)
	}
	defer as.Destroy()

	registry := diag.NewRegistry()
	registry.Register(as)
	if cfg.DiagAddr != "" {
		server := diag.NewServer(cfg.DiagAddr, registry)
		go func() {
			if err := server.Start(); err != nil {
				logger.WithError(err).Warn("diagnostics server stopped")
			}
		}()
		defer server.Shutdown()
	}

	as.InitRegisters()
	as.RestoreState()

	traceFile, err := os.Open(tracePath)
	if err != nil {
		return fmt.Errorf("opening trace file: %w", err)
	}
	defer traceFile.Close()

	accesses, err := readTrace(traceFile)
	if err != nil {
		return err
	}

	for i, acc := range accesses {
		if err := vm.HandleFault(kernel, as, acc.vaddr, acc.isWrite); err != nil {
			logger.WithFields(map[string]interface{}{
				"access": i,
				"vaddr":  acc.vaddr,
			}).WithError(err).Error("access failed")
			if thread.Finished {
				break
			}
		}
	}

	faults, writes := as.Metrics()
	logger.WithFields(map[string]interface{}{
		"page_faults": faults,
		"page_writes": writes,
		"thread_done": thread.Finished,
	}).Info("trace replay finished")
	return nil
}

func loadHostFile(fs *memsim.FileSystem, name, path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return err
	}
	if err := fs.Create(name, int64(len(data))); err != nil {
		return err
	}
	f, err := fs.Open(name)
	if err != nil {
		return err
	}
	defer f.Close()
	_, err = f.WriteAt(data, 0)
	return err
}
