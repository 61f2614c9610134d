package main

import (
	"context"
	"encoding/json"
	"os"

	"github.com/spf13/cobra"

	"github.com/xiaot623/gogo/tutor/internal/domain"
)

var (
	quizCount      int
	quizDifficulty string
	quizTypes      []string
	quizUser       string
	quizConvID     string
)

// quizCmd generates questions from the terminal and prints them as JSON.
var quizCmd = &cobra.Command{
	Use:   "quiz [topic]",
	Short: "Generate practice questions and print them as JSON",
	Long: `Generate practice questions about a topic with the configured completion backend.

With --conversation the questions are also posted to that conversation,
exactly as POST /api/generate-questions would.`,
	Args: cobra.MaximumNArgs(1),
	RunE: runQuiz,
}

func init() {
	quizCmd.Flags().IntVarP(&quizCount, "count", "n", domain.DefaultNumQuestions, "Number of questions")
	quizCmd.Flags().StringVarP(&quizDifficulty, "difficulty", "d", "", "easy, medium or hard (default: conversation level, then medium)")
	quizCmd.Flags().StringSliceVarP(&quizTypes, "type", "t", nil, "Question types: MultipleChoice, FillInTheBlanks")
	quizCmd.Flags().StringVar(&quizUser, "user", "", "User id to act as (default: DEFAULT_USER_ID)")
	quizCmd.Flags().StringVar(&quizConvID, "conversation", "", "Conversation to post the questions to")
}

func runQuiz(cmd *cobra.Command, args []string) error {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}
	a, err := newApp(ctx)
	if err != nil {
		return err
	}
	defer a.Close()

	topic := domain.DefaultTopicName
	if len(args) == 1 {
		topic = args[0]
	}
	user := quizUser
	if user == "" {
		user = a.cfg.DefaultUserID
	}

	resp, err := a.svc.GenerateQuestions(ctx, user, domain.GenerateQuestionsRequest{
		ConversationID: quizConvID,
		Topic:          topic,
		NumQuestions:   quizCount,
		Difficulty:     quizDifficulty,
		QuestionTypes:  quizTypes,
	})
	if err != nil {
		return err
	}

	enc := json.NewEncoder(os.Stdout)
	enc.SetIndent("", "  ")
	return enc.Encode(resp)
}
