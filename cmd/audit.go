package cmd

import (
	"context"
	"fmt"

	"github.com/schollz/progressbar/v3"
	"github.com/spf13/cobra"

	"github.com/fasinfasi/Face-Lock-System/internal/config"
	"github.com/fasinfasi/Face-Lock-System/internal/faceauth"
)

var auditCmd = &cobra.Command{
	Use:   "audit",
	Short: "Scan for distinct identities sharing the same face",
	Long: `Audit compares every pair of enrolled users and reports pairs whose best
cross-user similarity reaches the duplicate threshold. Such pairs usually mean
one person enrolled twice under different names, which the enrollment dedup
check can miss when two registrations race.`,
	RunE: runAudit,
}

func init() {
	rootCmd.AddCommand(auditCmd)
	auditCmd.Flags().Float64("threshold", 0, "Similarity threshold (defaults to the configured dedup threshold)")
}

func runAudit(cmd *cobra.Command, args []string) error {
	cfg := config.Load()
	threshold := mustGetFloat64(cmd, "threshold")
	if threshold == 0 {
		threshold = cfg.Matching.DedupThreshold
	}
	if threshold <= 0 || threshold > 1 {
		return fmt.Errorf("threshold %.3f out of range (0, 1]", threshold)
	}

	repo, pool, err := connectUserRepository()
	if err != nil {
		return err
	}
	defer pool.Close()

	users, err := repo.ListUsers(context.Background())
	if err != nil {
		return fmt.Errorf("listing users: %w", err)
	}
	if len(users) < 2 {
		fmt.Println("Fewer than two users enrolled, nothing to audit")
		return nil
	}

	pairs := len(users) * (len(users) - 1) / 2
	bar := progressbar.Default(int64(pairs), "comparing user pairs")

	type duplicate struct {
		a, b  string
		score float64
	}
	var duplicates []duplicate

	for i := range users {
		for j := i + 1; j < len(users); j++ {
			best := -1.0
			for _, ea := range users[i].Embeddings {
				for _, eb := range users[j].Embeddings {
					score, err := faceauth.CosineSimilarity(ea, eb)
					if err != nil {
						return fmt.Errorf("comparing %q and %q: %w", users[i].Identity, users[j].Identity, err)
					}
					if score > best {
						best = score
					}
				}
			}
			if best >= threshold {
				duplicates = append(duplicates, duplicate{users[i].Identity, users[j].Identity, best})
			}
			bar.Add(1)
		}
	}

	if len(duplicates) == 0 {
		fmt.Printf("\nNo duplicate faces found across %d users (threshold %.2f)\n", len(users), threshold)
		return nil
	}

	fmt.Printf("\nFound %d identity pairs sharing a face (threshold %.2f):\n", len(duplicates), threshold)
	for _, d := range duplicates {
		fmt.Printf("  %s <-> %s (similarity %.4f)\n", d.a, d.b, d.score)
	}
	return nil
}
