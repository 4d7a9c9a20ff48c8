package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/go-resty/resty/v2"
	"go.uber.org/zap"

	"github.com/tochadigital/cuidasenior/internal/config"
	"github.com/tochadigital/cuidasenior/internal/models"
)

// ReceiptAnalysis 小票识别结果
type ReceiptAnalysis struct {
	Amount      float64 `json:"amount"`
	Date        string  `json:"date"`
	Description string  `json:"description"`
}

// generateRequest 生成接口请求体
type generateRequest struct {
	Contents         []content         `json:"contents"`
	GenerationConfig *generationConfig `json:"generationConfig,omitempty"`
}

type content struct {
	Parts []part `json:"parts"`
}

type part struct {
	Text       string      `json:"text,omitempty"`
	InlineData *inlineData `json:"inlineData,omitempty"`
}

type inlineData struct {
	MimeType string `json:"mimeType"`
	Data     string `json:"data"`
}

type generationConfig struct {
	ResponseMimeType string `json:"responseMimeType,omitempty"`
}

// generateResponse 生成接口响应体
type generateResponse struct {
	Candidates []struct {
		Content content `json:"content"`
	} `json:"candidates"`
}

// AnalysisClient 外部分析服务客户端（小票识别 / 健康洞察）
// 未配置 API Key 时静默退化：识别返回空结果，洞察返回固定提示文案
type AnalysisClient struct {
	httpClient *resty.Client
	apiKey     string
	model      string
	logger     *zap.Logger
}

// NewAnalysisClient 创建分析服务客户端
func NewAnalysisClient(cfg config.AIConfig, logger *zap.Logger) *AnalysisClient {
	client := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetTimeout(30 * time.Second).
		SetHeader("Content-Type", "application/json").
		SetHeader("Accept", "application/json")

	return &AnalysisClient{
		httpClient: client,
		apiKey:     cfg.APIKey,
		model:      cfg.Model,
		logger:     logger,
	}
}

// Enabled 是否配置了 API Key
func (c *AnalysisClient) Enabled() bool {
	return c.apiKey != ""
}

// AnalyzeReceipt 识别小票图片，提取金额、日期和描述
// 失败返回 nil：调用方按"没有结果"处理，不中断录入流程
func (c *AnalysisClient) AnalyzeReceipt(ctx context.Context, base64Image string) *ReceiptAnalysis {
	if !c.Enabled() {
		return nil
	}

	// 去掉 data URL 前缀
	if idx := strings.Index(base64Image, ","); idx >= 0 {
		base64Image = base64Image[idx+1:]
	}

	request := generateRequest{
		Contents: []content{{
			Parts: []part{
				{InlineData: &inlineData{MimeType: "image/jpeg", Data: base64Image}},
				{Text: "Analise esta imagem de comprovante. Extraia o valor total (amount como number), a data (date YYYY-MM-DD) e uma breve descrição (description - nome do estabelecimento). Retorne estritamente JSON válido."},
			},
		}},
		GenerationConfig: &generationConfig{ResponseMimeType: "application/json"},
	}

	text, err := c.generate(ctx, request)
	if err != nil {
		c.logger.Warn("Receipt analysis failed", zap.Error(err))
		return nil
	}

	var result ReceiptAnalysis
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		c.logger.Warn("Receipt analysis returned invalid JSON", zap.Error(err))
		return nil
	}
	return &result
}

// HealthInsights 基于最近的生命体征和用药生成两句话的健康摘要
func (c *AnalysisClient) HealthInsights(ctx context.Context, vitals []models.VitalLog, meds []models.Medication) string {
	if !c.Enabled() {
		return "Configure a API Key para insights."
	}

	// 只取最近 3 条体征
	recent := vitals
	if len(recent) > 3 {
		recent = recent[len(recent)-3:]
	}
	vitalsJSON, _ := json.Marshal(recent)
	medsJSON, _ := json.Marshal(meds)

	prompt := fmt.Sprintf(
		"Analise estes sinais vitais recentes de um paciente idoso: %s e medicamentos: %s. Forneça um resumo diário de 2 frases ou alerta se os valores estiverem anormais. Responda em Português do Brasil.",
		vitalsJSON, medsJSON,
	)

	text, err := c.generate(ctx, generateRequest{
		Contents: []content{{Parts: []part{{Text: prompt}}}},
	})
	if err != nil {
		c.logger.Warn("Health insights failed", zap.Error(err))
		return "Insights indisponíveis."
	}
	if text == "" {
		return "Sem insights disponíveis."
	}
	return text
}

// generate 调用生成接口并取第一个候选的文本
func (c *AnalysisClient) generate(ctx context.Context, request generateRequest) (string, error) {
	var response generateResponse
	resp, err := c.httpClient.R().
		SetContext(ctx).
		SetQueryParam("key", c.apiKey).
		SetBody(request).
		SetResult(&response).
		Post(fmt.Sprintf("/v1beta/models/%s:generateContent", c.model))
	if err != nil {
		return "", fmt.Errorf("failed to call analysis API: %w", err)
	}
	if resp.IsError() {
		return "", fmt.Errorf("analysis API returned status %d", resp.StatusCode())
	}

	if len(response.Candidates) == 0 || len(response.Candidates[0].Content.Parts) == 0 {
		return "", nil
	}
	return response.Candidates[0].Content.Parts[0].Text, nil
}
