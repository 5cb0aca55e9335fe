package jobs

import (
	"database/sql"
	"errors"
	"time"
)

// timestampLayout is fixed width so stored values sort chronologically as text.
const timestampLayout = "2006-01-02T15:04:05.000000000Z07:00"

const jobColumns = "generation_uid, input_kind, source, quality, format, credits_used, status, run_id, output_path, error_message, created_at, updated_at, downloaded_at"

func scanJob(scanner interface{ Scan(dest ...any) error }) (*Job, error) {
	var (
		uid           string
		inputKind     string
		source        string
		quality       string
		format        string
		creditsUsed   sql.NullInt64
		status        string
		runID         sql.NullString
		outputPath    sql.NullString
		errorMessage  sql.NullString
		createdRaw    sql.NullString
		updatedRaw    sql.NullString
		downloadedRaw sql.NullString
	)

	if err := scanner.Scan(
		&uid,
		&inputKind,
		&source,
		&quality,
		&format,
		&creditsUsed,
		&status,
		&runID,
		&outputPath,
		&errorMessage,
		&createdRaw,
		&updatedRaw,
		&downloadedRaw,
	); err != nil {
		return nil, err
	}

	job := &Job{
		UID:          uid,
		InputKind:    InputKind(inputKind),
		Source:       source,
		Quality:      quality,
		Format:       format,
		CreditsUsed:  int(creditsUsed.Int64),
		Status:       status,
		RunID:        runID.String,
		OutputPath:   outputPath.String,
		ErrorMessage: errorMessage.String,
	}
	if created, err := parseTimeString(createdRaw.String); err == nil {
		job.CreatedAt = created
	}
	if updated, err := parseTimeString(updatedRaw.String); err == nil {
		job.UpdatedAt = updated
	}
	if downloadedRaw.Valid {
		if downloaded, err := parseTimeString(downloadedRaw.String); err == nil {
			job.DownloadedAt = &downloaded
		}
	}
	return job, nil
}

func nullableString(value string) any {
	if value == "" {
		return nil
	}
	return value
}

func nullableTime(value *time.Time) any {
	if value == nil {
		return nil
	}
	return value.UTC().Format(timestampLayout)
}

func parseTimeString(value string) (time.Time, error) {
	if value == "" {
		return time.Time{}, errors.New("empty")
	}
	if t, err := time.Parse(time.RFC3339Nano, value); err == nil {
		return t, nil
	}
	return time.Parse("2006-01-02 15:04:05", value)
}

func makePlaceholders(count int) string {
	if count <= 0 {
		return ""
	}
	placeholders := make([]byte, 0, count*2)
	for i := 0; i < count; i++ {
		if i > 0 {
			placeholders = append(placeholders, ',')
		}
		placeholders = append(placeholders, '?')
	}
	return string(placeholders)
}
