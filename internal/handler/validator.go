package handler

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/gin-gonic/gin/binding"
	"github.com/go-playground/locales/en"
	"github.com/go-playground/locales/zh"
	ut "github.com/go-playground/universal-translator"
	"github.com/go-playground/validator/v10"
	en_translations "github.com/go-playground/validator/v10/translations/en"
	zh_translations "github.com/go-playground/validator/v10/translations/zh"
)

// Trans 参数校验错误的翻译器，未初始化时输出 validator 原始信息
var Trans ut.Translator

// InitTrans 初始化翻译器，locale 为 "en" 或 "zh"，其他值按 "en" 处理
func InitTrans(locale string) error {
	if binding.Validator == nil {
		binding.Validator = &defaultValidator{validator: validator.New()}
	}
	v, ok := binding.Validator.Engine().(*validator.Validate)
	if !ok {
		return fmt.Errorf("unexpected validator engine %T", binding.Validator.Engine())
	}

	// 报错使用 json/form/uri tag 作为字段名，和客户端传参保持一致
	v.RegisterTagNameFunc(func(fld reflect.StructField) string {
		for _, key := range []string{"json", "form", "uri"} {
			name := strings.SplitN(fld.Tag.Get(key), ",", 2)[0]
			if name == "-" {
				return ""
			}
			if name != "" {
				return name
			}
		}
		return fld.Name
	})

	enT := en.New()
	uni := ut.New(enT, enT, zh.New())
	if locale != "zh" {
		locale = "en"
	}
	Trans, _ = uni.GetTranslator(locale)

	if locale == "zh" {
		return zh_translations.RegisterDefaultTranslations(v, Trans)
	}
	return en_translations.RegisterDefaultTranslations(v, Trans)
}

// RemoveTopStruct 去除提示信息中的结构体名称，如 "SendMessageRequest.receiverId" -> "receiverId"
func RemoveTopStruct(fields map[string]string) map[string]string {
	res := make(map[string]string, len(fields))
	for field, err := range fields {
		res[field[strings.Index(field, ".")+1:]] = err
	}
	return res
}

// defaultValidator 在 binding.Validator 为空时兜底
type defaultValidator struct {
	validator *validator.Validate
}

func (v *defaultValidator) ValidateStruct(obj any) error {
	return v.validator.Struct(obj)
}

func (v *defaultValidator) Engine() any {
	return v.validator
}
