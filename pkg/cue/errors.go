package cue

import (
	"errors"
	"fmt"
	"strings"
)

var (
	// ErrParse 文本不符合 CUE 语法
	ErrParse = errors.New("cue: parse error")
	// ErrBuild 语法树中的值无法转换成文档模型
	ErrBuild = errors.New("cue: build error")
	// ErrValidation 文档模型不满足切割的前置条件
	ErrValidation = errors.New("cue: validation error")
)

// ParseError 记录解析失败时到达的最远位置，以及该位置期望的语法元素
type ParseError struct {
	Line     int
	Column   int
	Expected []string
}

func (e *ParseError) Error() string {
	if len(e.Expected) == 0 {
		return fmt.Sprintf("%v at line %d, column %d", ErrParse, e.Line, e.Column)
	}
	return fmt.Sprintf("%v at line %d, column %d: expected %s",
		ErrParse, e.Line, e.Column, strings.Join(e.Expected, " or "))
}

func (e *ParseError) Unwrap() error { return ErrParse }

// BuildError 语法树节点无法转换时返回
type BuildError struct {
	Line   int
	Column int
	Msg    string
	Err    error
}

func (e *BuildError) Error() string {
	msg := fmt.Sprintf("%v at line %d, column %d: %s", ErrBuild, e.Line, e.Column, e.Msg)
	if e.Err != nil {
		msg += ": " + e.Err.Error()
	}
	return msg
}

func (e *BuildError) Is(target error) bool { return target == ErrBuild }

func (e *BuildError) Unwrap() error { return e.Err }

// ValidationError 文档结构不支持切割。Track 为 0 表示错误不针对某个轨道。
type ValidationError struct {
	Track  int
	Reason string
}

func (e *ValidationError) Error() string {
	if e.Track != 0 {
		return fmt.Sprintf("%v: track %d: %s", ErrValidation, e.Track, e.Reason)
	}
	return fmt.Sprintf("%v: %s", ErrValidation, e.Reason)
}

func (e *ValidationError) Unwrap() error { return ErrValidation }
