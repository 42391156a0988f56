/*
 * Copyright 2023 ICON Foundation
 *
 * Licensed under the Apache License, Version 2.0 (the "License");
 * you may not use this file except in compliance with the License.
 * You may obtain a copy of the License at
 *
 *     http://www.apache.org/licenses/LICENSE-2.0
 *
 * Unless required by applicable law or agreed to in writing, software
 * distributed under the License is distributed on an "AS IS" BASIS,
 * WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
 * See the License for the specific language governing permissions and
 * limitations under the License.
 */

package abi

import (
	"testing"

	"github.com/icon-project/btp2/common/errors"
	"github.com/stretchr/testify/assert"
)

func Test_CodeName(t *testing.T) {
	assert.Equal(t, "ValueOutOfRange", CodeName(ErrorCodeValueOutOfRange))
	assert.Equal(t, "MalformedCalldata", CodeName(ErrorCodeMalformedCalldata))
	assert.Equal(t, "", CodeName(errors.UnknownError))
}

func Test_IsCodecError(t *testing.T) {
	assert.False(t, IsCodecError(nil))
	assert.False(t, IsCodecError(errors.New("plain")))
	assert.False(t, IsCodecError(errors.IllegalArgumentError.New("other code")))

	err := ErrorCodeInvalidValue.New("bad value")
	assert.True(t, IsCodecError(err))
	assert.True(t, IsCodecError(errors.Wrapf(err, "decode input")))
	assert.True(t, IsCodecError(pathError(ErrorCodeTruncatedCalldata, "arg0", "short")))
}
