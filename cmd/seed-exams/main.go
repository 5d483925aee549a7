package main

import (
	"context"
	"fmt"
	"math/rand"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/prepora/prepora-backend/internal/config"
	"github.com/prepora/prepora-backend/internal/database"
	"github.com/prepora/prepora-backend/internal/logger"
	"github.com/prepora/prepora-backend/internal/model"
	"github.com/prepora/prepora-backend/internal/repository"
)

// Seeds a small catalog of past papers so the app has something to
// serve on a fresh database: four subjects, three years each, ten
// questions per paper.
func main() {
	cfg := config.Load()
	log := logger.Setup(cfg.LogLevel, cfg.LogFormat)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Minute)
	defer cancel()

	pool, err := database.NewPostgresPool(ctx, cfg, log)
	if err != nil {
		log.Fatal().Err(err).Msg("Failed to connect to PostgreSQL")
	}
	defer pool.Close()

	subjectRepo := repository.NewSubjectRepository(pool)
	examRepo := repository.NewExamRepository(pool)
	questionRepo := repository.NewQuestionRepository(pool)

	subjects := []string{"Mathematics", "Physics", "Chemistry", "Biology"}
	years := []int{2022, 2023, 2024}

	fmt.Println("=== Seeding Exam Catalog ===")

	rng := rand.New(rand.NewSource(42))
	examCount := 0

	for _, name := range subjects {
		subject, err := subjectRepo.GetByName(ctx, name)
		if err != nil {
			if err != pgx.ErrNoRows {
				log.Fatal().Err(err).Str("subject", name).Msg("Failed to check existing subject")
			}
			subject = &model.Subject{Name: name}
			if err := subjectRepo.Create(ctx, subject); err != nil {
				log.Fatal().Err(err).Str("subject", name).Msg("Failed to create subject")
			}
			fmt.Printf("Created subject '%s' with ID: %d\n", name, subject.ID)
		} else {
			fmt.Printf("Found existing subject '%s' with ID: %d\n", name, subject.ID)
		}

		for _, year := range years {
			exam := &model.Exam{
				SubjectID:       subject.ID,
				Title:           fmt.Sprintf("%s National Exam %d", name, year),
				Year:            year,
				DurationMinutes: 90,
				Status:          model.ExamStatusPublished,
			}
			if err := examRepo.Create(ctx, exam); err != nil {
				fmt.Printf("Error creating exam '%s': %v\n", exam.Title, err)
				continue
			}

			for i := 0; i < 10; i++ {
				q := &model.Question{
					ExamID: exam.ID,
					Text:   fmt.Sprintf("%s %d, question %d: which of the following is correct?", name, year, i+1),
					Options: []string{
						"Option A",
						"Option B",
						"Option C",
						"Option D",
					},
					CorrectIndex: rng.Intn(4),
					Explanation:  fmt.Sprintf("The answer follows from the %s syllabus, chapter %d.", name, i/2+1),
					OrderNum:     i,
				}
				if err := questionRepo.Create(ctx, q); err != nil {
					fmt.Printf("Error creating question %d for '%s': %v\n", i+1, exam.Title, err)
				}
			}

			examCount++
			fmt.Printf("Created exam '%s' (%s)\n", exam.Title, exam.ID)
		}
	}

	fmt.Printf("\nSeed completed! %d exams across %d subjects.\n", examCount, len(subjects))
}
