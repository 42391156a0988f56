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

package api

import (
	"net/http"
	"regexp"

	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

const (
	TagHexData  = "hexdata"
	TagSelector = "selector"
	TagSort     = "sort"
)

var (
	hexDataPattern  = regexp.MustCompile(`^0[xX]([0-9a-fA-F]{2})*$`)
	selectorPattern = regexp.MustCompile(`^0[xX][0-9a-fA-F]{8}$`)
	sortPattern     = regexp.MustCompile(`^(id|selector|signature|name)( (asc|desc))?(,(id|selector|signature|name)( (asc|desc))?)*$`)
)

type Validator struct {
	v *validator.Validate
}

func NewValidator() *Validator {
	v := validator.New()
	mustRegister(v, TagHexData, hexDataPattern)
	mustRegister(v, TagSelector, selectorPattern)
	mustRegister(v, TagSort, sortPattern)
	return &Validator{v: v}
}

func mustRegister(v *validator.Validate, tag string, p *regexp.Regexp) {
	if err := v.RegisterValidation(tag, func(fl validator.FieldLevel) bool {
		return p.MatchString(fl.Field().String())
	}); err != nil {
		panic(err)
	}
}

func (v *Validator) Validate(i interface{}) error {
	if err := v.v.Struct(i); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	return nil
}

func (v *Validator) Var(field interface{}, tag string) error {
	if err := v.v.Var(field, tag); err != nil {
		return echo.NewHTTPError(http.StatusBadRequest, err)
	}
	return nil
}
