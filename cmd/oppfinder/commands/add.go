package commands

import (
	"bufio"
	"encoding/json"
	"fmt"
	"os"
	"strings"
	"time"

	"oppfinder-backend/lib/deadline"
	"oppfinder-backend/lib/opportunity"
	"oppfinder-backend/lib/serviceutil"
	"oppfinder-backend/lib/tags"
	"oppfinder-backend/lib/textutil"

	"github.com/spf13/cobra"
)

func init() {
	rootCmd.AddCommand(addCmd)
}

func prompt(in *bufio.Reader, label string) string {
	fmt.Print(label)
	line, _ := in.ReadString('\n')
	return strings.TrimSpace(line)
}

// multi-line input terminated by an empty line
func promptMultiline(in *bufio.Reader, label string) string {
	fmt.Println(label)
	var lines []string
	for {
		line, err := in.ReadString('\n')
		line = strings.TrimRight(line, "\n")
		if line == "" || err != nil {
			break
		}
		lines = append(lines, line)
	}
	return strings.Join(lines, "\n")
}

func promptTagCategory(in *bufio.Reader, t opportunity.Tags, category, hint string) {
	current := strings.Join(t[category], ",")
	value := prompt(in, fmt.Sprintf("  %s (%s) [%s]: ", category, hint, current))
	if value == "" {
		return
	}
	var list []string
	for _, item := range strings.Split(value, ",") {
		item = strings.TrimSpace(item)
		if item != "" {
			list = append(list, item)
		}
	}
	if len(list) > 0 {
		t[category] = list
	}
}

var addCmd = &cobra.Command{
	Use:   "add",
	Short: "Interactively adds a manually curated opportunity to the store.",
	RunE: func(cmd *cobra.Command, args []string) error {
		cfg, err := readConfig()
		if err != nil {
			serviceutil.Fatal("failed to read config", err)
		}
		in := bufio.NewReader(os.Stdin)

		fmt.Println("\n=== Add New Opportunity ===")

		name := prompt(in, "Name: ")
		if name == "" {
			return fmt.Errorf("name is required")
		}
		url := prompt(in, "URL: ")
		if url == "" {
			return fmt.Errorf("url is required")
		}

		description := promptMultiline(in, "Description (finish with an empty line):")
		source := prompt(in, "Source [Manual]: ")
		if source == "" {
			source = "Manual"
		}

		deadlineISO, deadlineDisplay := deadline.ParseInput(
			prompt(in, "Deadline (e.g. 'March 15, 2026' or '2026-03-15'): "),
		)

		inferred := tags.Default().Infer(name + " " + description)
		if inferred == nil {
			inferred = opportunity.Tags{}
		}
		fmt.Printf("\nInferred tags: %v\n", inferred)
		if strings.EqualFold(prompt(in, "Edit tags? (y/N): "), "y") {
			fmt.Println("\nEnter comma-separated values (or leave blank to keep):")
			promptTagCategory(in, inferred, opportunity.CategoryLevel, "undergraduate,graduate,postdoc")
			promptTagCategory(in, inferred, opportunity.CategoryCitizenship, "us_citizen,permanent_resident,international")
			promptTagCategory(in, inferred, opportunity.CategoryType, "fellowship,grant,scholarship,research,internship,travel")
			promptTagCategory(in, inferred, opportunity.CategoryFunding, "$ amounts")
		}
		for category, list := range inferred {
			if len(list) == 0 {
				delete(inferred, category)
			}
		}
		if len(inferred) == 0 {
			inferred = nil
		}

		opp := opportunity.Opportunity{
			ID:              opportunity.GenerateID(name, source),
			Name:            name,
			Description:     textutil.Truncate(description, 800),
			URL:             url,
			Source:          source,
			SourceURL:       url,
			Tags:            inferred,
			Deadline:        deadlineISO,
			DeadlineDisplay: deadlineDisplay,
			ScrapedAt:       time.Now().UTC(),
		}

		preview, err := json.MarshalIndent(opp, "", "  ")
		if err != nil {
			return err
		}
		fmt.Printf("\n--- Preview ---\n%s\n", preview)

		if strings.EqualFold(prompt(in, "\nSave this opportunity? (Y/n): "), "n") {
			fmt.Println("cancelled")
			return nil
		}

		store := openStore(cfg)
		existing := store.Load()

		duplicate := false
		for _, o := range existing {
			if o.ID == opp.ID {
				duplicate = true
				break
			}
		}
		if duplicate {
			fmt.Println("an opportunity with this name/source already exists")
			if !strings.EqualFold(prompt(in, "Overwrite? (y/N): "), "y") {
				fmt.Println("cancelled")
				return nil
			}
			var kept []opportunity.Opportunity
			for _, o := range existing {
				if o.ID != opp.ID {
					kept = append(kept, o)
				}
			}
			existing = kept
		}

		existing = append(existing, opp)
		err = store.Write(existing)
		if err != nil {
			return err
		}

		fmt.Printf("\nsaved, total opportunities: %d\n", len(existing))
		return nil
	},
}
