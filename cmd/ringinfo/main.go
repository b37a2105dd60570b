// Command ringinfo attaches read-only to an existing ring and prints its
// current state. It is a diagnostic tool only: it never produces or consumes
// frames, never parses a config file (spec §1 Non-goals), and is not the
// demo producer/consumer the spec explicitly excludes.
package main

import (
	"fmt"
	"os"

	"github.com/c2h5oh/datasize"
	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/shmring/shmring/ring"
)

var cmd struct {
	IndexName string
	DataName  string
	Capacity  string
}

var rootCmd = &cobra.Command{
	Use:   "ringinfo",
	Short: "Print the state of an existing shmring ring",
	RunE: func(_ *cobra.Command, _ []string) error {
		return run(cmd.IndexName, cmd.DataName, cmd.Capacity)
	},
}

func init() {
	rootCmd.Flags().StringVar(&cmd.IndexName, "index-name", "", "Name of the state shared segment (required)")
	rootCmd.Flags().StringVar(&cmd.DataName, "data-name", "", "Name of the data shared segment (required)")
	rootCmd.Flags().StringVar(&cmd.Capacity, "capacity", "", "Data segment capacity, e.g. 1MiB (required, must match the writer's)")
	rootCmd.MarkFlagRequired("index-name")
	rootCmd.MarkFlagRequired("data-name")
	rootCmd.MarkFlagRequired("capacity")
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Printf("ERROR: %v\n", err)
		os.Exit(1)
	}
}

func run(indexName, dataName, capacityStr string) error {
	config := zap.NewDevelopmentConfig()
	config.Development = false
	config.Level.SetLevel(zap.WarnLevel)

	logger, err := config.Build()
	if err != nil {
		return fmt.Errorf("failed to build logger: %w", err)
	}
	defer logger.Sync()

	log := ring.NewZapDiagSink(logger.Sugar())

	var capacity datasize.ByteSize
	if err := capacity.UnmarshalText([]byte(capacityStr)); err != nil {
		return fmt.Errorf("parse --capacity %q: %w", capacityStr, err)
	}

	spec := ring.Spec{IndexName: indexName, DataName: dataName, Capacity: capacity}

	r, err := ring.NewReaderReadOnly(spec, ring.WithReaderDiagSink(log))
	if err != nil {
		return fmt.Errorf("attach read-only reader: %w", err)
	}
	defer r.Close()

	fmt.Println(r.Describe())
	return nil
}
