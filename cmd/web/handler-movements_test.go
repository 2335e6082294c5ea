package main

import (
	"fmt"
	"net/http"
	"slices"
	"strings"
	"testing"

	"github.com/myrjola/repcoach/internal/e2etest"
	"github.com/myrjola/repcoach/internal/workout"
)

func Test_application_movements(t *testing.T) {
	var (
		ctx    = t.Context()
		server = startServer(t)
		client = server.Client()
	)

	var groups []string
	if err := client.JSON(ctx, http.MethodGet, "/api/muscle-groups", nil, &groups); err != nil {
		t.Fatalf("Failed to list muscle groups: %v", err)
	}
	if !slices.Contains(groups, "Quads") {
		t.Errorf("Expected Quads among muscle groups, got %v", groups)
	}

	var squat movementResponse
	if err := client.JSON(ctx, http.MethodGet, "/api/movements/1", nil, &squat); err != nil {
		t.Fatalf("Failed to get movement: %v", err)
	}
	if squat.Name != "Barbell Back Squat" {
		t.Errorf("Expected Barbell Back Squat, got %q", squat.Name)
	}
	if squat.DescriptionMarkdown != "" && !strings.Contains(squat.DescriptionHTML, "<") {
		t.Errorf("Expected rendered HTML description, got %q", squat.DescriptionHTML)
	}

	err := client.JSON(ctx, http.MethodPost, "/api/movements/generate", generateMovementRequest{Name: "  "}, nil)
	if status := e2etest.Status(err); status != http.StatusBadRequest {
		t.Errorf("Expected status %d for an empty name, got %d (%v)", http.StatusBadRequest, status, err)
	}

	for _, name := range []string{squat.Name, strings.Repeat("x", 128)} {
		err = client.JSON(ctx, http.MethodPost, "/api/movements/generate", generateMovementRequest{Name: name}, nil)
		if status := e2etest.Status(err); status != http.StatusBadRequest {
			t.Errorf("Expected status %d for name %q, got %d (%v)", http.StatusBadRequest, name, status, err)
		}
	}

	var generated workout.Movement
	if err = client.JSON(ctx, http.MethodPost, "/api/movements/generate",
		generateMovementRequest{Name: "Landmine Press"}, &generated); err != nil {
		t.Fatalf("Failed to generate movement: %v", err)
	}
	if generated.ID == 0 || generated.Name != "Landmine Press" {
		t.Errorf("Unexpected generated movement %+v", generated)
	}

	var stored movementResponse
	if err = client.JSON(ctx, http.MethodGet, fmt.Sprintf("/api/movements/%d", generated.ID), nil,
		&stored); err != nil {
		t.Fatalf("Failed to get generated movement: %v", err)
	}
	if stored.Name != "Landmine Press" {
		t.Errorf("Expected the generated movement to be stored, got %+v", stored)
	}

	edit := stored.Movement
	edit.Equipment = workout.EquipmentBarbell
	edit.Category = workout.CategoryUpper
	edit.PrimaryMuscleGroups = []string{"Shoulders"}
	var edited workout.Movement
	moveURL := fmt.Sprintf("/api/movements/%d", generated.ID)
	if err = client.JSON(ctx, http.MethodPut, moveURL, edit, &edited); err != nil {
		t.Fatalf("Failed to update movement: %v", err)
	}
	if edited.Equipment != workout.EquipmentBarbell || !slices.Equal(edited.PrimaryMuscleGroups, []string{"Shoulders"}) {
		t.Errorf("Expected the movement to be updated, got %+v", edited)
	}

	edit.PrimaryMuscleGroups = []string{"Tail"}
	err = client.JSON(ctx, http.MethodPut, moveURL, edit, nil)
	if status := e2etest.Status(err); status != http.StatusBadRequest {
		t.Errorf("Expected status %d for unknown muscle group, got %d (%v)", http.StatusBadRequest, status, err)
	}
}
