package db

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/jackc/pgx/v5"

	"github.com/gradmatch/matcher/internal/types"
)

// GetUserPreferences retrieves one user's preference record, or nil when the
// user has none on file.
func (db *DB) GetUserPreferences(ctx context.Context, email string) (*types.UserPreferences, error) {
	var p types.UserPreferences
	var citiesJSON, pathJSON, rolesJSON, skillsJSON, industriesJSON []byte

	err := db.pool.QueryRow(ctx,
		`SELECT email, target_cities, career_path, roles_selected, skills,
		        industries, entry_level_preference, company_size_preference,
		        work_environment, visa_status, tier
		 FROM user_preferences WHERE email = $1`,
		email,
	).Scan(&p.Email, &citiesJSON, &pathJSON, &rolesJSON, &skillsJSON,
		&industriesJSON, &p.EntryLevelPreference, &p.CompanySizePreference,
		&p.WorkEnvironment, &p.VisaStatus, &p.Tier)
	if err != nil {
		if err == pgx.ErrNoRows {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to get user preferences: %w", err)
	}

	unmarshalPreferenceArrays(&p, citiesJSON, pathJSON, rolesJSON, skillsJSON, industriesJSON)
	return &p, nil
}

// ListUsersWithPreferences returns every user eligible for a matching run,
// ordered by email for deterministic batch traversal.
func (db *DB) ListUsersWithPreferences(ctx context.Context) ([]types.UserPreferences, error) {
	rows, err := db.pool.Query(ctx,
		`SELECT email, target_cities, career_path, roles_selected, skills,
		        industries, entry_level_preference, company_size_preference,
		        work_environment, visa_status, tier
		 FROM user_preferences
		 ORDER BY email`,
	)
	if err != nil {
		return nil, fmt.Errorf("failed to list users: %w", err)
	}
	defer rows.Close()

	var users []types.UserPreferences
	for rows.Next() {
		var p types.UserPreferences
		var citiesJSON, pathJSON, rolesJSON, skillsJSON, industriesJSON []byte
		if err := rows.Scan(&p.Email, &citiesJSON, &pathJSON, &rolesJSON,
			&skillsJSON, &industriesJSON, &p.EntryLevelPreference,
			&p.CompanySizePreference, &p.WorkEnvironment, &p.VisaStatus,
			&p.Tier); err != nil {
			return nil, fmt.Errorf("failed to scan user row: %w", err)
		}
		unmarshalPreferenceArrays(&p, citiesJSON, pathJSON, rolesJSON, skillsJSON, industriesJSON)
		users = append(users, p)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate user rows: %w", err)
	}
	return users, nil
}

func unmarshalPreferenceArrays(p *types.UserPreferences, cities, path, roles, skills, industries []byte) {
	if cities != nil {
		_ = json.Unmarshal(cities, &p.TargetCities)
	}
	if path != nil {
		_ = json.Unmarshal(path, &p.CareerPath)
	}
	if roles != nil {
		_ = json.Unmarshal(roles, &p.RolesSelected)
	}
	if skills != nil {
		_ = json.Unmarshal(skills, &p.Skills)
	}
	if industries != nil {
		_ = json.Unmarshal(industries, &p.Industries)
	}
}
