package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/gdc-multiomics-manifest/internal/domain"
)

var (
	buildProject string
	buildOutput  string
	buildNoStore bool
)

// buildCmd runs one manifest build
var buildCmd = &cobra.Command{
	Use:   "build",
	Short: "Build the patient manifest for a project",
	Long: `Fetch the four modality file sets and the clinical records of a project,
keep the patients present in every modality and write the manifest CSV.

The output path may be a local file or gs://bucket/object; {project} is
replaced by the project id. No file is written when any modality fails.`,
	RunE: runBuild,
}

func init() {
	buildCmd.Flags().StringVarP(&buildProject, "project", "p", "", "GDC project id (default: cohort.project)")
	buildCmd.Flags().StringVarP(&buildOutput, "output", "o", "", "Output path (default: output.path)")
	buildCmd.Flags().BoolVar(&buildNoStore, "no-store", false, "Do not record this run in the run store")
}

func runBuild(cmd *cobra.Command, args []string) error {
	overrides := map[string]interface{}{}
	if buildNoStore {
		overrides["store.driver"] = domain.StoreDriverNone
	}

	a, err := newApp(cmd.Context(), overrides)
	if err != nil {
		return err
	}
	defer a.close()

	result, err := a.builder.Build(cmd.Context(), domain.BuildRequest{
		Project:    buildProject,
		OutputPath: buildOutput,
	})
	if err != nil {
		return err
	}

	out := cmd.OutOrStdout()
	fmt.Fprintf(out, "Total patients with all modalities: %d\n", result.CohortSize)
	if result.OutputPath != "" {
		fmt.Fprintf(out, "Manifest written to %s\n", result.OutputPath)
	}
	if a.store != nil {
		fmt.Fprintf(out, "Run id: %s\n", result.RunID)
	}
	return nil
}
