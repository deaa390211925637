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

// Package demo provides self-contained demonstration tools for the bobbin
// CLI and examples. They return canned data and never touch the network, so
// a query can exercise the full orchestration loop without external
// services.
package demo

import (
	"context"
	"fmt"
	"math"
	"strings"

	"github.com/teradata-labs/bobbin/pkg/tool"
)

// must panics when a statically-defined tool fails to build. Demo tool
// schemas are fixed at compile time, so a failure here is a programming
// bug, not a runtime condition.
func must(t *tool.Tool, err error) *tool.Tool {
	if err != nil {
		panic(err)
	}
	return t
}

// All returns every demo tool.
func All() []*tool.Tool {
	return []*tool.Tool{
		Weather(),
		CountWords(),
		Sentiment(),
		SearchDatabase(),
		Calculator(),
	}
}

// ByName returns the named demo tools, in the order requested.
func ByName(names ...string) ([]*tool.Tool, error) {
	available := map[string]func() *tool.Tool{
		"get_weather":       Weather,
		"count_words":       CountWords,
		"analyze_sentiment": Sentiment,
		"search_database":   SearchDatabase,
		"calculator":        Calculator,
	}

	tools := make([]*tool.Tool, 0, len(names))
	for _, name := range names {
		build, ok := available[name]
		if !ok {
			return nil, fmt.Errorf("no such demo tool: %s", name)
		}
		tools = append(tools, build())
	}
	return tools, nil
}

// Weather returns a mock weather lookup with canned data for a few cities.
func Weather() *tool.Tool {
	schema := tool.NewObjectSchema("Weather lookup parameters", map[string]*tool.JSONSchema{
		"location": tool.NewStringSchema("City name to get weather for"),
		"units": tool.NewStringSchema("Measurement system to use").
			WithEnum("metric", "imperial").
			WithDefault("metric"),
	})

	canned := map[string]struct {
		temperature float64
		condition   string
	}{
		"New York":      {75, "sunny"},
		"San Francisco": {65, "foggy"},
		"Seattle":       {55, "rainy"},
		"Chicago":       {80, "partly cloudy"},
	}

	return must(tool.New(
		"get_weather",
		"Get current weather information for a specified location",
		schema,
		func(ctx context.Context, inputs map[string]interface{}) (interface{}, error) {
			location, _ := inputs["location"].(string)
			units, _ := inputs["units"].(string)

			temperature := 70.0
			condition := "unknown"
			if w, ok := canned[location]; ok {
				temperature = w.temperature
				condition = w.condition
			}
			if strings.EqualFold(units, "imperial") {
				temperature = math.Round(temperature*9/5 + 32)
			}

			return map[string]interface{}{
				"temperature": temperature,
				"condition":   condition,
				"location":    location,
				"units":       units,
			}, nil
		},
	))
}

// CountWords returns a word statistics tool built through the typed
// resolver.
func CountWords() *tool.Tool {
	type input struct {
		Text string `json:"text" jsonschema_description:"Text to analyze"`
	}

	return must(tool.NewFromHandler(
		"count_words",
		"Count the number of words in a text",
		func(ctx context.Context, in input) (interface{}, error) {
			words := strings.Fields(in.Text)

			unique := make(map[string]struct{}, len(words))
			totalLen := 0
			for _, w := range words {
				unique[w] = struct{}{}
				totalLen += len(w)
			}

			count := len(words)
			avg := 0.0
			if count > 0 {
				avg = float64(totalLen) / float64(count)
			}

			return map[string]interface{}{
				"word_count":          count,
				"unique_words":        len(unique),
				"average_word_length": avg,
			}, nil
		},
	))
}

// Sentiment returns a keyword-list mock sentiment analyzer.
func Sentiment() *tool.Tool {
	type input struct {
		Text string `json:"text" jsonschema_description:"Text to analyze"`
	}

	positive := map[string]struct{}{
		"good": {}, "great": {}, "excellent": {}, "wonderful": {}, "happy": {},
	}
	negative := map[string]struct{}{
		"bad": {}, "terrible": {}, "awful": {}, "horrible": {}, "sad": {},
	}

	return must(tool.NewFromHandler(
		"analyze_sentiment",
		"Simple mock sentiment analysis",
		func(ctx context.Context, in input) (interface{}, error) {
			positiveCount := 0
			negativeCount := 0
			for _, w := range strings.Fields(strings.ToLower(in.Text)) {
				if _, ok := positive[w]; ok {
					positiveCount++
				}
				if _, ok := negative[w]; ok {
					negativeCount++
				}
			}

			score := 0.0
			if total := positiveCount + negativeCount; total > 0 {
				score = float64(positiveCount-negativeCount) / float64(total)
			}

			return map[string]interface{}{
				"sentiment_score": score,
				"positive_words":  positiveCount,
				"negative_words":  negativeCount,
				"is_positive":     score > 0,
				"is_negative":     score < 0,
				"is_neutral":      score == 0,
			}, nil
		},
	))
}

// SearchDatabase returns a mock record search over a tiny in-memory
// dataset.
func SearchDatabase() *tool.Tool {
	type input struct {
		Query string `json:"query" jsonschema_description:"The search term to look for in the database"`
		Limit int    `json:"limit" jsonschema:"default=10" jsonschema_description:"Maximum number of results to return"`
	}

	type record struct {
		ID       int    `json:"id"`
		Name     string `json:"name"`
		Category string `json:"category"`
	}

	database := []record{
		{1, "Apple", "Fruit"},
		{2, "Banana", "Fruit"},
		{3, "Carrot", "Vegetable"},
		{4, "Dill", "Herb"},
		{5, "Eggplant", "Vegetable"},
	}

	return must(tool.NewFromHandler(
		"search_database",
		"Search the database for records matching the query",
		func(ctx context.Context, in input) (interface{}, error) {
			query := strings.ToLower(in.Query)

			var results []record
			for _, item := range database {
				if strings.Contains(strings.ToLower(item.Name), query) ||
					strings.Contains(strings.ToLower(item.Category), query) {
					results = append(results, item)
					if len(results) >= in.Limit {
						break
					}
				}
			}

			return map[string]interface{}{
				"results": results,
				"count":   len(results),
			}, nil
		},
	))
}

// Calculator returns a basic arithmetic tool.
func Calculator() *tool.Tool {
	schema := tool.NewObjectSchema("Arithmetic operation parameters", map[string]*tool.JSONSchema{
		"operation": tool.NewStringSchema("The operation to perform").
			WithEnum("add", "subtract", "multiply", "divide"),
		"number1": tool.NewNumberSchema("First number in the operation"),
		"number2": tool.NewNumberSchema("Second number in the operation").
			WithDefault(0.0),
	})

	return must(tool.New(
		"calculator",
		"Performs basic arithmetic operations",
		schema,
		func(ctx context.Context, inputs map[string]interface{}) (interface{}, error) {
			operation, _ := inputs["operation"].(string)
			number1, _ := inputs["number1"].(float64)
			number2, _ := inputs["number2"].(float64)

			var result float64
			switch strings.ToLower(operation) {
			case "add":
				result = number1 + number2
			case "subtract":
				result = number1 - number2
			case "multiply":
				result = number1 * number2
			case "divide":
				if number2 == 0 {
					return nil, fmt.Errorf("division by zero")
				}
				result = number1 / number2
			default:
				return nil, fmt.Errorf("unknown operation: %s", operation)
			}

			return map[string]interface{}{
				"operation": operation,
				"number1":   number1,
				"number2":   number2,
				"result":    result,
			}, nil
		},
	))
}
