package i18n

import (
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

func init() {
	en := language.English
	pt := language.BrazilianPortuguese

	set := func(key, english, portuguese string) {
		_ = message.SetString(en, key, english)
		_ = message.SetString(pt, key, portuguese)
	}

	// Navigation
	set("nav.dashboard", "Dashboard", "Painel")
	set("nav.robots", "Robots", "Robôs")
	set("nav.orders", "Orders", "Pedidos")
	set("nav.templates", "Templates", "Modelos")
	set("nav.settings", "Settings", "Configurações")

	// Dashboard
	set("dashboard.title", "Fleet overview", "Visão geral da frota")
	set("dashboard.robots_count", "%d robots", "%d robôs")
	set("dashboard.orders_count", "%d orders", "%d pedidos")
	set("dashboard.templates_count", "%d templates", "%d modelos")
	set("dashboard.counts_unavailable", "Counts unavailable.", "Contagens indisponíveis.")
	set("dashboard.realtime", "Realtime", "Tempo real")
	set("dashboard.realtime_connected", "Connected", "Conectado")
	set("dashboard.realtime_disconnected", "Disconnected", "Desconectado")
	set("dashboard.recent_messages", "Recent messages", "Mensagens recentes")
	set("dashboard.no_messages", "No messages yet.", "Nenhuma mensagem ainda.")
	set("dashboard.backend_health", "Backend health", "Saúde do backend")
	set("dashboard.health_not_configured", "Not configured", "Não configurado")

	// Lists and details
	set("list.empty", "Nothing to show.", "Nada para mostrar.")
	set("list.unavailable", "The list could not be loaded.", "Não foi possível carregar a lista.")
	set("detail.loading", "Loading…", "Carregando…")
	set("detail.missing_id", "No identifier was given for this page.", "Nenhum identificador foi informado para esta página.")
	set("detail.back_to_list", "Back to list", "Voltar para a lista")
	set("detail.not_found", "Not found.", "Não encontrado.")
	set("detail.unavailable", "Details could not be loaded.", "Não foi possível carregar os detalhes.")

	// Session
	set("auth.sign_in_prompt", "Sign in to view this page.", "Entre para ver esta página.")
	set("auth.sign_in", "Sign in", "Entrar")
	set("auth.sign_out", "Sign out", "Sair")
	set("auth.identifier", "Username", "Usuário")
	set("auth.secret", "Password", "Senha")
	set("settings.title", "Settings", "Configurações")
	set("settings.signed_in_as", "Signed in as %s", "Conectado como %s")
	set("settings.signed_out", "Not signed in.", "Não conectado.")
	set("settings.loading", "Working…", "Processando…")
	set("settings.last_error", "Last error: %s", "Último erro: %s")

	// Errors
	set("error.not_found_title", "Page not found", "Página não encontrada")
	set("error.not_found_body", "There is nothing at this address.", "Não há nada neste endereço.")
	set("error.failure_title", "Something went wrong", "Algo deu errado")
	set("error.csrf_invalid", "This request did not come from the console.", "Esta requisição não veio do console.")
	set("error.failure_body", "The page failed to render. Try again.", "A página falhou ao renderizar. Tente novamente.")
}
