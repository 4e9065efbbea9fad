package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"

	"github.com/pkg/errors"
	"github.com/spf13/cobra"

	"github.com/memodrops/memodrops/server/service/card"
	"github.com/memodrops/memodrops/server/service/learn"
	"github.com/memodrops/memodrops/store"
)

func newMigrateCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "migrate",
		Short: "Apply pending schema migrations",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			applied, err := a.store.ListAppliedMigrations(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"applied": applied})
		}),
	}
}

// dropImport is one drop of an import file.
type dropImport struct {
	TopicCode  string          `json:"topicCode"`
	DropType   string          `json:"dropType"`
	Difficulty *int32          `json:"difficulty"`
	Content    json.RawMessage `json:"content"`
}

func (d *dropImport) toDrop() (*store.Drop, error) {
	if d.TopicCode == "" {
		return nil, errors.New("topicCode is required")
	}
	drop := &store.Drop{TopicCode: d.TopicCode, Difficulty: d.Difficulty, DropText: "{}"}
	if d.DropType != "" {
		dropType := store.DropType(d.DropType)
		switch dropType {
		case store.DropTypeExplanation, store.DropTypeMiniQuestion, store.DropTypeFlashcard:
		default:
			return nil, errors.Errorf("unknown dropType %q", d.DropType)
		}
		drop.DropType = &dropType
	}
	if len(d.Content) > 0 {
		if !json.Valid(d.Content) {
			return nil, errors.New("content is not valid JSON")
		}
		drop.DropText = string(d.Content)
	}
	return drop, nil
}

func newDropCommand() *cobra.Command {
	dropCmd := &cobra.Command{Use: "drop", Short: "Manage the drop catalog"}
	dropCmd.AddCommand(&cobra.Command{
		Use:   "import <file.json>",
		Short: "Import drops from a JSON array",
		Args:  cobra.ExactArgs(1),
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, args []string) error {
			data, err := os.ReadFile(args[0])
			if err != nil {
				return errors.Wrap(err, "failed to read import file")
			}
			var imports []*dropImport
			if err := json.Unmarshal(data, &imports); err != nil {
				return errors.Wrap(err, "failed to parse import file")
			}

			// Validate everything before writing anything.
			drops := make([]*store.Drop, 0, len(imports))
			for i, item := range imports {
				drop, err := item.toDrop()
				if err != nil {
					return errors.Wrapf(err, "drop %d", i)
				}
				drops = append(drops, drop)
			}
			ids := make([]int32, 0, len(drops))
			for _, drop := range drops {
				created, err := a.store.CreateDrop(ctx, drop)
				if err != nil {
					return err
				}
				ids = append(ids, created.ID)
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"imported": len(ids), "ids": ids})
		}),
	})
	return dropCmd
}

func newPlanCommand() *cobra.Command {
	planCmd := &cobra.Command{Use: "plan", Short: "Daily study plans"}

	dailyCmd := &cobra.Command{
		Use:   "daily",
		Short: "Generate the daily plan of a user",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			userID, _ := cmd.Flags().GetString("user")
			limit, _ := cmd.Flags().GetInt("limit")
			dailyPlan, err := a.plan.GenerateDailyPlan(ctx, userID, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), dailyPlan)
		}),
	}
	dailyCmd.Flags().String("user", "", "user id")
	dailyCmd.Flags().Int("limit", 0, "maximum number of drops (default from MEMODROPS_DAILY_PLAN_LIMIT)")
	_ = dailyCmd.MarkFlagRequired("user")

	previewCmd := &cobra.Command{
		Use:   "preview",
		Short: "Preview the daily plan of every studying user",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			runner := a.newPreviewRunner()
			if watch, _ := cmd.Flags().GetBool("watch"); watch {
				runner.Run(ctx)
				return nil
			}
			report, err := runner.RunOnce(ctx)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{
				"report": report,
				"cache":  a.store.CacheStats(),
			})
		}),
	}
	previewCmd.Flags().Bool("watch", false, "keep previewing every MEMODROPS_PREVIEW_INTERVAL until interrupted")

	planCmd.AddCommand(dailyCmd, previewCmd)
	return planCmd
}

func newLearnCommand() *cobra.Command {
	learnCmd := &cobra.Command{Use: "learn", Short: "Topic mastery log"}
	logCmd := &cobra.Command{
		Use:   "log",
		Short: "Record a right or wrong answer to a drop",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			userID, _ := cmd.Flags().GetString("user")
			dropID, _ := cmd.Flags().GetInt32("drop")
			correct, _ := cmd.Flags().GetBool("correct")
			result, err := a.learn.Log(ctx, &learn.LogInput{UserID: userID, DropID: dropID, WasCorrect: correct})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		}),
	}
	logCmd.Flags().String("user", "", "user id")
	logCmd.Flags().Int32("drop", 0, "drop id")
	logCmd.Flags().Bool("correct", false, "whether the answer was correct")
	_ = logCmd.MarkFlagRequired("user")
	_ = logCmd.MarkFlagRequired("drop")
	learnCmd.AddCommand(logCmd)
	return learnCmd
}

func newCardCommand() *cobra.Command {
	cardCmd := &cobra.Command{Use: "card", Short: "Graded review cards"}
	cardCmd.PersistentFlags().String("user", "", "user id")
	_ = cardCmd.MarkPersistentFlagRequired("user")

	enrollCmd := &cobra.Command{
		Use:   "enroll",
		Short: "Enroll a drop for graded review",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			userID, _ := cmd.Flags().GetString("user")
			dropID, _ := cmd.Flags().GetInt32("drop")
			result, err := a.card.Enroll(ctx, userID, dropID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		}),
	}
	enrollCmd.Flags().Int32("drop", 0, "drop id")
	_ = enrollCmd.MarkFlagRequired("drop")

	dueCmd := &cobra.Command{
		Use:   "due",
		Short: "List cards due for review",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			userID, _ := cmd.Flags().GetString("user")
			limit, _ := cmd.Flags().GetInt("limit")
			cards, err := a.card.ListDue(ctx, userID, limit)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), cards)
		}),
	}
	dueCmd.Flags().Int("limit", 0, fmt.Sprintf("maximum number of cards (default %d)", card.DefaultDueLimit))

	reviewCmd := &cobra.Command{
		Use:   "review",
		Short: "Grade a card from 0 to 5",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			userID, _ := cmd.Flags().GetString("user")
			cardID, _ := cmd.Flags().GetString("card")
			grade, _ := cmd.Flags().GetInt("grade")
			result, err := a.card.Review(ctx, &card.ReviewInput{UserID: userID, CardID: cardID, Grade: grade})
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), result)
		}),
	}
	reviewCmd.Flags().String("card", "", "card id")
	reviewCmd.Flags().Int("grade", -1, "grade from 0 (blackout) to 5 (perfect)")
	_ = reviewCmd.MarkFlagRequired("card")
	_ = reviewCmd.MarkFlagRequired("grade")

	cardCmd.AddCommand(enrollCmd, dueCmd, reviewCmd)
	return cardCmd
}

func newStatsCommand() *cobra.Command {
	statsCmd := &cobra.Command{
		Use:   "stats",
		Short: "Show the topic progress of a user",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			userID, _ := cmd.Flags().GetString("user")
			topicCode, _ := cmd.Flags().GetString("topic")
			if topicCode == "" {
				stats, err := a.progress.GetStats(ctx, userID)
				if err != nil {
					return err
				}
				return printJSON(cmd.OutOrStdout(), stats)
			}
			topic, err := a.progress.GetTopicStats(ctx, userID, topicCode)
			if err != nil {
				return err
			}
			if topic == nil {
				return printJSON(cmd.OutOrStdout(), map[string]any{
					"userId":    userID,
					"topicCode": topicCode,
					"message":   "no progress on this topic yet",
				})
			}
			return printJSON(cmd.OutOrStdout(), topic)
		}),
	}
	statsCmd.Flags().String("user", "", "user id")
	statsCmd.Flags().String("topic", "", "topic code")
	_ = statsCmd.MarkFlagRequired("user")
	return statsCmd
}

func newResetCommand() *cobra.Command {
	resetCmd := &cobra.Command{
		Use:   "reset",
		Short: "Delete all topic progress of a user",
		RunE: withApp(func(ctx context.Context, cmd *cobra.Command, a *app, _ []string) error {
			userID, _ := cmd.Flags().GetString("user")
			if yes, _ := cmd.Flags().GetBool("yes"); !yes {
				return errors.New("reset deletes all progress of the user; pass --yes to confirm")
			}
			deleted, err := a.progress.Reset(ctx, userID)
			if err != nil {
				return err
			}
			return printJSON(cmd.OutOrStdout(), map[string]any{"userId": userID, "deletedTopics": deleted})
		}),
	}
	resetCmd.Flags().String("user", "", "user id")
	resetCmd.Flags().Bool("yes", false, "confirm the reset")
	_ = resetCmd.MarkFlagRequired("user")
	return resetCmd
}

func newVersionCommand() *cobra.Command {
	return &cobra.Command{
		Use:   "version",
		Short: "Print the version",
		Run: func(cmd *cobra.Command, _ []string) {
			fmt.Fprintln(cmd.OutOrStdout(), version)
		},
	}
}
