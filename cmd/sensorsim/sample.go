package main

import (
	"fmt"
	"strconv"
	"time"

	"github.com/spf13/cobra"

	"github.com/speedwagon-io/sensorsim/internal/generator"
	"github.com/speedwagon-io/sensorsim/internal/model"
)

func newSampleCmd() *cobra.Command {
	var (
		kindName string
		count    int
		seed     uint64
	)

	cmd := &cobra.Command{
		Use:   "sample",
		Short: "Print values drawn from a sensor kind's distribution",
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := model.ParseKind(kindName)
			if err != nil {
				return err
			}
			if count <= 0 {
				return fmt.Errorf("count must be positive, got %d", count)
			}
			if !cmd.Flags().Changed("seed") {
				seed = uint64(time.Now().UnixNano())
			}

			gen := generator.New(seed)
			out := cmd.OutOrStdout()
			for i := 0; i < count; i++ {
				v, err := gen.Value(kind)
				if err != nil {
					return err
				}
				fmt.Fprintf(out, "%s %s\n", strconv.FormatFloat(v, 'f', 2, 64), kind.Unit())
			}
			return nil
		},
	}

	cmd.Flags().StringVar(&kindName, "type", string(model.KindTemperature), "sensor type: temperature, humidity or noise")
	cmd.Flags().IntVar(&count, "count", 10, "number of values to print")
	cmd.Flags().Uint64Var(&seed, "seed", 0, "generator seed (random when unset)")

	return cmd
}
