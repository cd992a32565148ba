// Deploy driver: builds the container image, pushes it to Artifact
// Registry and rolls it out to Cloud Run. This is operational glue
// around the docker and gcloud CLIs, nothing more.
package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"os/exec"
	"os/signal"
	"strings"
	"syscall"
)

func main() {
	project := flag.String("project", os.Getenv("GOOGLE_CLOUD_PROJECT"), "GCP project ID")
	region := flag.String("region", "us-central1", "Cloud Run region")
	service := flag.String("service", "palaver", "Cloud Run service name")
	repository := flag.String("repository", "palaver", "Artifact Registry repository")
	tag := flag.String("tag", "latest", "Image tag")
	allowUnauth := flag.Bool("allow-unauthenticated", true, "Allow public access")
	flag.Parse()

	if *project == "" {
		log.Fatal("project is required (flag -project or GOOGLE_CLOUD_PROJECT)")
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	image := fmt.Sprintf("%s-docker.pkg.dev/%s/%s/%s:%s",
		*region, *project, *repository, *service, *tag)

	log.Printf("deploying %s to %s/%s", image, *project, *region)

	// The repository create is idempotent in effect: an already-exists
	// error is fine to ignore.
	if err := run(ctx, "gcloud", "artifacts", "repositories", "create", *repository,
		"--repository-format", "docker",
		"--location", *region,
		"--project", *project,
		"--quiet",
	); err != nil {
		log.Printf("repository create skipped: %v", err)
	}

	steps := [][]string{
		{"gcloud", "auth", "configure-docker",
			fmt.Sprintf("%s-docker.pkg.dev", *region), "--quiet"},
		{"docker", "build", "-t", image, "."},
		{"docker", "push", image},
	}

	deploy := []string{
		"gcloud", "run", "deploy", *service,
		"--image", image,
		"--platform", "managed",
		"--region", *region,
		"--project", *project,
		"--quiet",
	}
	if *allowUnauth {
		deploy = append(deploy, "--allow-unauthenticated")
	}
	steps = append(steps, deploy)

	for _, step := range steps {
		log.Printf("run: %s", strings.Join(step, " "))
		if err := run(ctx, step[0], step[1:]...); err != nil {
			log.Fatalf("step failed: %v", err)
		}
	}

	url, err := output(ctx, "gcloud", "run", "services", "describe", *service,
		"--platform", "managed",
		"--region", *region,
		"--project", *project,
		"--format", "value(status.url)",
	)
	if err != nil {
		log.Fatalf("describe service: %v", err)
	}
	log.Printf("service deployed: %s", strings.TrimSpace(url))
}

func run(ctx context.Context, name string, args ...string) error {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Stdout = os.Stdout
	cmd.Stderr = os.Stderr
	return cmd.Run()
}

func output(ctx context.Context, name string, args ...string) (string, error) {
	out, err := exec.CommandContext(ctx, name, args...).Output()
	return string(out), err
}
