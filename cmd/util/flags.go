package util

import (
	"runtime"

	"github.com/spf13/cobra"
)

var (
	FlagCpu     = runtime.NumCPU()
	FlagCpuProf = ""
	FlagVerbose = false
)

// Workers returns the number of concurrent workers allowed by --cpu. It is
// never less than one.
func Workers() int {
	return max(FlagCpu, 1)
}

type commonFlag struct {
	set  func(cmd *cobra.Command)
	init func()
}

var commonFlags = map[string]*commonFlag{
	"cpu": {
		set: func(cmd *cobra.Command) {
			cmd.Flags().IntVar(&FlagCpu, "cpu", FlagCpu,
				"The max number of CPUs to use.")
		},
		init: func() {
			runtime.GOMAXPROCS(Workers())
		},
	},
	"cpuprof": {
		set: func(cmd *cobra.Command) {
			cmd.Flags().StringVar(&FlagCpuProf, "cpuprof", FlagCpuProf,
				"When set, a CPU profile will be written to the file specified.")
		},
	},
	"verbose": {
		set: func(cmd *cobra.Command) {
			cmd.Flags().BoolVarP(&FlagVerbose, "verbose", "v", FlagVerbose,
				"When set, progress and debug messages are logged.")
		},
		init: func() {
			SetVerbose(FlagVerbose)
		},
	},
}

// FlagUse registers the named common flags on cmd and arranges for them to
// take effect before cmd runs.
func FlagUse(cmd *cobra.Command, names ...string) {
	var inits []func()
	for _, name := range names {
		fl := commonFlags[name]
		fl.set(cmd)
		if fl.init != nil {
			inits = append(inits, fl.init)
		}
	}
	prev := cmd.PreRun
	cmd.PreRun = func(cmd *cobra.Command, args []string) {
		for _, fn := range inits {
			fn()
		}
		if prev != nil {
			prev(cmd, args)
		}
	}
}
