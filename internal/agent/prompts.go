package agent

import "strings"

// Prompts holds the report headings and LLM prompt templates for one
// output language. Templates use {inventory} and {ucx} placeholders.
type Prompts struct {
	ReportTitle      string
	InventorySection string
	UCXSection       string
	DetailedSection  string
	SummarySection   string

	SummaryPrompt  string
	DetailedPrompt string
	UCXPrompt      string

	Labels Labels
}

// Labels are the renderer headings for the locally generated inventory.
type Labels struct {
	SectionIdentity     string
	SectionCompute      string
	SectionAnalytics    string
	SectionWorkspace    string
	SectionUnityCatalog string
	SectionSummary      string

	Users         string
	Groups        string
	Permissions   string
	Clusters      string
	NodeTypes     string
	InstancePools string
	Jobs          string
	Notebooks     string
	Languages     string
	Warehouses    string
	Dashboards    string
	Queries       string
	Alerts        string
	SecretScopes  string
	Repos         string
	Catalogs      string
	Schemas       string
	Tables        string
	Volumes       string
	Models        string

	TotalResources string
	ConfigFiles    string
	Count          string
	Domain         string
}

const defaultLanguage = "pt-BR"

var catalog = map[string]Prompts{
	"en": {
		ReportTitle:      "Databricks Assessment Report",
		InventorySection: "INFRASTRUCTURE INVENTORY",
		UCXSection:       "UCX MIGRATION ANALYSIS",
		DetailedSection:  "DETAILED TECHNICAL ANALYSIS",
		SummarySection:   "EXECUTIVE SUMMARY",
		SummaryPrompt: "Write an executive summary of the following Databricks workspace assessment. " +
			"Highlight adoption level, governance posture and migration risks.\n\n{inventory}",
		DetailedPrompt: "Write a detailed technical analysis of the following Databricks workspace inventory. " +
			"Cover identity and access, compute sizing, job and notebook hygiene, SQL analytics usage and " +
			"Unity Catalog governance. Give concrete recommendations per area.\n\n{inventory}",
		UCXPrompt: "Based on the following UCX assessment export, write a Unity Catalog migration-readiness " +
			"analysis: overall readiness, object types needing attention, and a prioritized migration plan.\n\n{ucx}",
		Labels: Labels{
			SectionIdentity:     "IDENTITY & ACCESS CONTROL",
			SectionCompute:      "COMPUTE RESOURCES",
			SectionAnalytics:    "SQL ANALYTICS & BI",
			SectionWorkspace:    "WORKSPACE & FILES",
			SectionUnityCatalog: "UNITY CATALOG GOVERNANCE",
			SectionSummary:      "INVENTORY SUMMARY",
			Users:               "Users",
			Groups:              "Groups",
			Permissions:         "Permissions",
			Clusters:            "Clusters",
			NodeTypes:           "Node types",
			InstancePools:       "Instance pools",
			Jobs:                "Jobs",
			Notebooks:           "Notebooks",
			Languages:           "Languages",
			Warehouses:          "SQL warehouses",
			Dashboards:          "Dashboards",
			Queries:             "Queries",
			Alerts:              "Alerts",
			SecretScopes:        "Secret scopes",
			Repos:               "Repos",
			Catalogs:            "Catalogs",
			Schemas:             "Schemas",
			Tables:              "Tables",
			Volumes:             "Volumes",
			Models:              "Registered models",
			TotalResources:      "Total resources",
			ConfigFiles:         "Configuration files",
			Count:               "Count",
			Domain:              "Domain",
		},
	},
	"pt-BR": {
		ReportTitle:      "Relatório de Assessment Databricks",
		InventorySection: "INVENTÁRIO DE INFRAESTRUTURA",
		UCXSection:       "ANÁLISE DE MIGRAÇÃO UCX",
		DetailedSection:  "ANÁLISE TÉCNICA DETALHADA",
		SummarySection:   "SUMÁRIO EXECUTIVO",
		SummaryPrompt: "Escreva um sumário executivo do assessment de workspace Databricks a seguir. " +
			"Destaque nível de adoção, postura de governança e riscos de migração. Responda em português.\n\n{inventory}",
		DetailedPrompt: "Escreva uma análise técnica detalhada do inventário de workspace Databricks a seguir. " +
			"Cubra identidade e acesso, dimensionamento de compute, higiene de jobs e notebooks, uso de SQL " +
			"analytics e governança Unity Catalog. Dê recomendações concretas por área. Responda em português.\n\n{inventory}",
		UCXPrompt: "Com base no export de assessment UCX a seguir, escreva uma análise de prontidão para " +
			"migração Unity Catalog: prontidão geral, tipos de objeto que exigem atenção e um plano de " +
			"migração priorizado. Responda em português.\n\n{ucx}",
		Labels: Labels{
			SectionIdentity:     "IDENTIDADE & CONTROLE DE ACESSO",
			SectionCompute:      "RECURSOS DE COMPUTE",
			SectionAnalytics:    "SQL ANALYTICS & BI",
			SectionWorkspace:    "WORKSPACE & ARQUIVOS",
			SectionUnityCatalog: "GOVERNANÇA UNITY CATALOG",
			SectionSummary:      "RESUMO DO INVENTÁRIO",
			Users:               "Usuários",
			Groups:              "Grupos",
			Permissions:         "Permissões",
			Clusters:            "Clusters",
			NodeTypes:           "Tipos de nó",
			InstancePools:       "Instance pools",
			Jobs:                "Jobs",
			Notebooks:           "Notebooks",
			Languages:           "Linguagens",
			Warehouses:          "SQL warehouses",
			Dashboards:          "Dashboards",
			Queries:             "Queries",
			Alerts:              "Alertas",
			SecretScopes:        "Secret scopes",
			Repos:               "Repositórios",
			Catalogs:            "Catálogos",
			Schemas:             "Schemas",
			Tables:              "Tabelas",
			Volumes:             "Volumes",
			Models:              "Modelos registrados",
			TotalResources:      "Total de recursos",
			ConfigFiles:         "Arquivos de configuração",
			Count:               "Quantidade",
			Domain:              "Domínio",
		},
	},
}

// PromptsFor resolves a BCP-47 tag against the catalog. Unknown tags try
// a primary-subtag match and then fall back to English.
func PromptsFor(language string) Prompts {
	language = strings.TrimSpace(language)
	if language == "" {
		language = defaultLanguage
	}
	if p, ok := catalog[language]; ok {
		return p
	}
	primary := strings.SplitN(language, "-", 2)[0]
	for tag, p := range catalog {
		if strings.EqualFold(strings.SplitN(tag, "-", 2)[0], primary) {
			return p
		}
	}
	return catalog["en"]
}

const markdownSystemPrompt = "You are a Databricks expert writing a technical report. " +
	"CRITICAL: Write ONLY in pure MARKDOWN format. " +
	"For tables, use ONLY this format: | col1 | col2 | with |---|---| separator. " +
	"NEVER use HTML tags like <table>, <tr>, <td>, <th>. " +
	"Return pure markdown text without any HTML tags."

const ucxSystemPrompt = "You are a Unity Catalog migration expert. " +
	"CRITICAL: Write ONLY in pure MARKDOWN format. " +
	"For tables, use ONLY: | col1 | col2 | with |---|---| separator. " +
	"NEVER use HTML tags. ONLY markdown. " +
	"Provide a professional executive analysis in markdown."
