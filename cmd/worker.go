package cmd

import (
	"github.com/spf13/cobra"

	"claimassist/internal/logger"
	"claimassist/internal/queue"
)

var workerCmd = &cobra.Command{
	Use:   "worker",
	Short: "Process queued stages until interrupted",
	Long: `Start a pool of workers that receive stage messages from the queue and
run them through the pipeline. Each stage enqueues the next one on success.
Stop with Ctrl-C; messages in flight are retried after the visibility
timeout.`,
	Args: cobra.NoArgs,
	RunE: runWorker,
}

func init() {
	rootCmd.AddCommand(workerCmd)

	workerCmd.Flags().Int("workers", 0, "Number of workers (default: QUEUE_WORKERS)")
}

func runWorker(cmd *cobra.Command, args []string) error {
	log := logger.WithComponent("worker")
	workers, _ := cmd.Flags().GetInt("workers")

	// runs until a signal arrives
	ctx, cancel := createContextWithTimeout(0, log)
	defer cancel()

	a, err := newApp(ctx, appOptions{models: true}, log)
	if err != nil {
		return err
	}
	defer a.Close()

	if workers <= 0 {
		workers = a.cfg.QueueWorkers
	}

	counts, err := a.queue.Counts(ctx)
	if err == nil {
		log.Info().Interface("queue", counts).Int("workers", workers).Msg("Starting workers")
	}

	w := queue.NewWorker(a.queue, a.pipeline,
		queue.WithWorkers(workers),
		queue.WithPollInterval(a.cfg.QueuePollInterval),
		queue.WithProcessTimeout(a.cfg.QueueProcessTimeout),
	)
	return w.Run(ctx)
}
