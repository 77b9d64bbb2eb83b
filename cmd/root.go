package cmd

import (
	"fmt"
	"os"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
)

var rootCmd = &cobra.Command{
	Use:   "facelock",
	Short: "A facial authentication backend",
	Long: `Face Lock System is a facial authentication backend. Users enroll with a
single face image and later log in with their face alone; each login is
matched against every enrolled user. An external embedding service performs
face detection and produces the embeddings this server stores and compares.`,
}

func Execute() {
	if err := rootCmd.Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}

func init() {
	cobra.OnInitialize(initConfig)
}

func initConfig() {
	// .env file is optional, don't fail if not found
	_ = godotenv.Load()
}
