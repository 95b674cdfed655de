package main

import (
	"context"
	"fmt"
)

func (cli *commandLine) recompute(examID, userID string) error {
	svc, err := cli.exams()
	if err != nil {
		return err
	}
	ctx := context.Background()

	if userID != "" {
		perf, err := svc.Recompute(ctx, userID, examID)
		if err != nil {
			return err
		}
		fmt.Printf("%s: %d%% (%s)\n", userID, perf.Percentage, perf.Grade.LetterGrade)
		return nil
	}

	n, err := svc.RecomputeExam(ctx, examID)
	if err != nil {
		return err
	}
	fmt.Printf("recomputed %d performance(s)\n", n)
	return nil
}

func (cli *commandLine) retryStale() error {
	svc, err := cli.exams()
	if err != nil {
		return err
	}
	n, err := svc.RetryStale(context.Background())
	if err != nil {
		return err
	}
	fmt.Printf("fixed %d stale performance(s)\n", n)
	return nil
}
