package cli

import (
	"fmt"
	"time"

	"github.com/law-makers/reviewwatch/internal/notify"
	"github.com/law-makers/reviewwatch/internal/ui"
	"github.com/law-makers/reviewwatch/pkg/models"
	"github.com/spf13/cobra"
)

var notifyTestCmd = &cobra.Command{
	Use:   "notify-test",
	Short: "Send a sample notification through the configured sink",
	Args:  cobra.NoArgs,
	RunE:  runNotifyTest,
}

func init() {
	rootCmd.AddCommand(notifyTestCmd)
}

func runNotifyTest(cmd *cobra.Command, args []string) error {
	a := GetApp(cmd)
	sample := &models.Snapshot{
		Reviews: []models.ReviewRecord{
			{ExpertName: "Expert A", OverallEvaluation: "良好", ReviewResult: "同意答辩"},
			{ExpertName: "Expert B", OverallEvaluation: "合格", ReviewResult: "修改后答辩"},
		},
		FinalResult: "测试消息",
		ExtractTime: time.Now(),
	}

	if !a.Sink.Notify(cmd.Context(), a.Config.Notify.Title, notify.FormatBody(sample)) {
		return fmt.Errorf("test notification through %s was not delivered", a.Sink.Name())
	}
	fmt.Fprintln(cmd.OutOrStdout(), ui.Success("✓ Test notification sent via "+a.Sink.Name()))
	return nil
}
