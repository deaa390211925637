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
package llm

import (
	"errors"
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFatal(t *testing.T) {
	cause := errors.New("model not found")
	err := Fatal(cause)

	require.Error(t, err)
	assert.True(t, IsFatal(err))
	assert.ErrorIs(t, err, cause)
	assert.Contains(t, err.Error(), "model not found")
}

func TestFatal_Nil(t *testing.T) {
	assert.NoError(t, Fatal(nil))
}

func TestIsFatal_TransientError(t *testing.T) {
	assert.False(t, IsFatal(errors.New("throttled")))
	assert.False(t, IsFatal(nil))
}

func TestIsFatal_Wrapped(t *testing.T) {
	// Classification survives further wrapping up the call stack.
	err := fmt.Errorf("bedrock converse failed: %w", Fatal(errors.New("access denied")))

	assert.True(t, IsFatal(err))
}
