// Copyright 2026 Teradata
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//	http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.
package demo

import (
	"context"
	"testing"

	"github.com/teradata-labs/bobbin/pkg/tool"
)

func newRegistry(t *testing.T) *tool.Registry {
	t.Helper()
	registry := tool.NewRegistry()
	for _, dt := range All() {
		if err := registry.Register(dt); err != nil {
			t.Fatalf("Register(%s) error = %v", dt.Name(), err)
		}
	}
	return registry
}

func TestAll_RegistersCleanly(t *testing.T) {
	registry := newRegistry(t)

	schemas := registry.SchemaForModel()
	if len(schemas) != 5 {
		t.Fatalf("SchemaForModel() returned %d schemas, want 5", len(schemas))
	}

	names := make(map[string]bool)
	for _, s := range schemas {
		names[s.Name] = true
	}
	for _, want := range []string{"get_weather", "count_words", "analyze_sentiment", "search_database", "calculator"} {
		if !names[want] {
			t.Errorf("missing schema for %s", want)
		}
	}
}

func TestWeather_DefaultUnits(t *testing.T) {
	registry := newRegistry(t)

	result, err := registry.Invoke(context.Background(), "get_weather", map[string]interface{}{
		"location": "San Francisco",
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("Invoke() failed: %+v", result.Error)
	}

	data := result.Data.(map[string]interface{})
	if data["temperature"] != 65.0 {
		t.Errorf("temperature = %v, want 65", data["temperature"])
	}
	if data["condition"] != "foggy" {
		t.Errorf("condition = %v, want foggy", data["condition"])
	}
	// Omitted optional parameter takes its schema default
	if data["units"] != "metric" {
		t.Errorf("units = %v, want metric", data["units"])
	}
}

func TestWeather_ImperialConversion(t *testing.T) {
	registry := newRegistry(t)

	result, err := registry.Invoke(context.Background(), "get_weather", map[string]interface{}{
		"location": "Seattle",
		"units":    "imperial",
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	data := result.Data.(map[string]interface{})
	if data["temperature"] != 131.0 { // round(55*9/5 + 32)
		t.Errorf("temperature = %v, want 131", data["temperature"])
	}
}

func TestWeather_MissingLocation(t *testing.T) {
	registry := newRegistry(t)

	result, err := registry.Invoke(context.Background(), "get_weather", map[string]interface{}{})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if result.Success {
		t.Fatal("expected validation failure for missing location")
	}
	if result.Error.Code != tool.ErrCodeValidation {
		t.Errorf("error code = %s, want %s", result.Error.Code, tool.ErrCodeValidation)
	}
}

func TestCountWords(t *testing.T) {
	registry := newRegistry(t)

	result, err := registry.Invoke(context.Background(), "count_words", map[string]interface{}{
		"text": "one two two",
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("Invoke() failed: %+v", result.Error)
	}

	data := result.Data.(map[string]interface{})
	if data["word_count"] != 3 {
		t.Errorf("word_count = %v, want 3", data["word_count"])
	}
	if data["unique_words"] != 2 {
		t.Errorf("unique_words = %v, want 2", data["unique_words"])
	}
	if data["average_word_length"] != 3.0 {
		t.Errorf("average_word_length = %v, want 3.0", data["average_word_length"])
	}
}

func TestSentiment(t *testing.T) {
	registry := newRegistry(t)

	result, err := registry.Invoke(context.Background(), "analyze_sentiment", map[string]interface{}{
		"text": "good good bad",
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}

	data := result.Data.(map[string]interface{})
	if data["positive_words"] != 2 {
		t.Errorf("positive_words = %v, want 2", data["positive_words"])
	}
	if data["negative_words"] != 1 {
		t.Errorf("negative_words = %v, want 1", data["negative_words"])
	}
	if data["is_positive"] != true {
		t.Errorf("is_positive = %v, want true", data["is_positive"])
	}
}

func TestSearchDatabase(t *testing.T) {
	registry := newRegistry(t)

	result, err := registry.Invoke(context.Background(), "search_database", map[string]interface{}{
		"query": "fruit",
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("Invoke() failed: %+v", result.Error)
	}

	data := result.Data.(map[string]interface{})
	if data["count"] != 2 {
		t.Errorf("count = %v, want 2 (Apple and Banana)", data["count"])
	}
}

func TestCalculator_DefaultSecondOperand(t *testing.T) {
	registry := newRegistry(t)

	result, err := registry.Invoke(context.Background(), "calculator", map[string]interface{}{
		"operation": "add",
		"number1":   2.0,
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if !result.Success {
		t.Fatalf("Invoke() failed: %+v", result.Error)
	}

	data := result.Data.(map[string]interface{})
	if data["result"] != 2.0 {
		t.Errorf("result = %v, want 2 (number2 defaults to 0)", data["result"])
	}
}

func TestCalculator_DivisionByZero(t *testing.T) {
	registry := newRegistry(t)

	result, err := registry.Invoke(context.Background(), "calculator", map[string]interface{}{
		"operation": "divide",
		"number1":   1.0,
		"number2":   0.0,
	})
	if err != nil {
		t.Fatalf("Invoke() error = %v", err)
	}
	if result.Success {
		t.Fatal("expected division by zero to fail")
	}
	if result.Error.Code != tool.ErrCodeExecution {
		t.Errorf("error code = %s, want %s", result.Error.Code, tool.ErrCodeExecution)
	}
}

func TestByName(t *testing.T) {
	tools, err := ByName("calculator", "get_weather")
	if err != nil {
		t.Fatalf("ByName() error = %v", err)
	}
	if len(tools) != 2 {
		t.Fatalf("len(tools) = %d, want 2", len(tools))
	}
	if tools[0].Name() != "calculator" || tools[1].Name() != "get_weather" {
		t.Errorf("order not preserved: [%s, %s]", tools[0].Name(), tools[1].Name())
	}

	if _, err := ByName("no_such_tool"); err == nil {
		t.Error("expected error for unknown demo tool")
	}
}
