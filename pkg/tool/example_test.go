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
package tool_test

import (
	"context"
	"fmt"
	"strings"

	"github.com/teradata-labs/bobbin/pkg/tool"
)

// ExampleNew shows explicit schema construction: every parameter is
// declared by hand, so the tool's contract is visible in one place.
func ExampleNew() {
	echo, err := tool.New(
		"echo",
		"Repeat the input text a number of times",
		tool.NewObjectSchema("Echo parameters", map[string]*tool.JSONSchema{
			"text":  tool.NewStringSchema("Text to repeat"),
			"times": tool.NewIntegerSchema("Repeat count").WithDefault(1),
		}),
		func(_ context.Context, inputs map[string]interface{}) (interface{}, error) {
			text, _ := inputs["text"].(string)
			times := int(inputs["times"].(float64))
			return strings.Repeat(text, times), nil
		},
	)
	if err != nil {
		panic(err)
	}

	registry := tool.NewRegistry()
	if err := registry.Register(echo); err != nil {
		panic(err)
	}

	result, err := registry.Invoke(context.Background(), "echo",
		map[string]interface{}{"text": "ha", "times": 3.0})
	if err != nil {
		panic(err)
	}
	fmt.Println(result.Data)
	// Output: hahaha
}

// ExampleNewFromHandler derives the schema from a typed input struct:
// json tags name the parameters, jsonschema_description tags describe
// them, and a jsonschema default makes a parameter optional.
func ExampleNewFromHandler() {
	type input struct {
		Text    string `json:"text" jsonschema_description:"Text to shout"`
		Exclaim bool   `json:"exclaim,omitempty" jsonschema:"default=true" jsonschema_description:"Append an exclamation mark"`
	}

	shout, err := tool.NewFromHandler("shout", "Uppercase the input text",
		func(_ context.Context, in input) (interface{}, error) {
			out := strings.ToUpper(in.Text)
			if in.Exclaim {
				out += "!"
			}
			return out, nil
		})
	if err != nil {
		panic(err)
	}

	registry := tool.NewRegistry()
	if err := registry.Register(shout); err != nil {
		panic(err)
	}

	// exclaim is omitted, so its default applies.
	result, err := registry.Invoke(context.Background(), "shout",
		map[string]interface{}{"text": "quiet"})
	if err != nil {
		panic(err)
	}
	fmt.Println(result.Data)
	// Output: QUIET!
}
