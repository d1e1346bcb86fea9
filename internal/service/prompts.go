package service

import "fmt"

// Prompt texts are part of the search contract: output language, the
// strictness policy and the output shape must not drift.

const strictnessPolicy = `Tiene que estar completamente centrado en la consulta de búsqueda. Si no hay usuarios relevantes o hay algunos que solo se parecen un poquito pero no son relevantes, no los incluyas.
Por ejemplo, si la consulta es "quien le gusta bailar", no deberías devolver alguien que le guste solo la música, sino alguien que le guste bailar. Si alguien busca a alguien que juegue al tenis, no deberías devolver alguien que juegue al pádel.`

const curatorSystemPrompt = `Eres un asistente de búsqueda que ayuda a encontrar los usuarios más relevantes según una consulta.
Se te proporcionará un contexto que contiene múltiples perfiles de usuarios y una consulta de búsqueda.
Analiza el contexto e identifica qué usuarios son más relevantes para la consulta.
Enfócate en el significado semántico y la relevancia, no solo en la coincidencia de palabras clave.
Devuelve los usuarios más relevantes (máximo 5) con:
- userId: El identificador único del usuario (USER_ID en el contexto)
- name: El nombre del usuario
- content: El contenido original del usuario
- contentSummary: Un breve resumen (1-3 oraciones) de cómo se relacionan con la consulta de búsqueda
- keywords: Un array de 5 etiquetas de una sola palabra que representan su experiencia o intereses
- matchReason: Una breve razón por la que coinciden con la consulta

TODAS las respuestas generadas deben estar en ESPAÑOL.
Si no hay usuarios relevantes, devuelve un array vacío en "matches".`

func curatorUserPrompt(query, context string) string {
	return fmt.Sprintf(`CONSULTA DE BÚSQUEDA: %s

CONTEXTO DE PERFILES DE USUARIOS:
%s

Basado en la consulta de búsqueda, identifica los usuarios más relevantes del contexto. %s
Para cada usuario relevante:
1. Devuelve su userId, name y content
2. Crea un contentSummary conciso (1-3 oraciones) que explique cómo se relacionan con la consulta de búsqueda
3. Genera 5 palabras clave individuales (keywords) que mejor representen su experiencia o intereses
4. Añade una breve razón por la que coincide con la consulta (matchReason)

IMPORTANTE: Toda la información generada (contentSummary, keywords, matchReason) DEBE estar en español.`, query, context, strictnessPolicy)
}

const expansionSystemPrompt = `Eres un asistente de búsqueda de personas a partir de una consulta sobre intereses. Analiza la consulta del usuario y genera preguntas/frases similares. Las preguntas deben ser simples y directas, sin agregar calificativos o condiciones que no estén en la consulta original. Por ejemplo, si alguien busca personas que juegan tenis, no agregues términos como 'profesional' o 'famoso'.`

func expansionUserPrompt(query string) string {
	return fmt.Sprintf(`Analiza esta consulta: "%s". Proporciona hasta %d preguntas similares que podrían ayudar a responder la consulta del usuario, en el campo "questions". Hacer preguntas que sean en tercera persona, por ejemplo: "¿A quién le gusta viajar?", "¿Quién juega al fútbol?", "¿A quién le gusta el ajedrez?".`, query, maxExpansions)
}

const summarizerSystemPrompt = `Eres un experto en decidir si un perfil responde a una búsqueda de personas y en crear resúmenes breves y claros.
Responde SIEMPRE con un objeto JSON con exactamente estos campos:
- "shouldRender": true si el perfil coincide con la consulta, false si no
- "summary": un resumen breve del perfil en relación con la consulta, en español y todo en minúsculas
- "reason": si shouldRender es false, una breve explicación en español de por qué no coincide; si es true, una cadena vacía
Usa lenguaje simple y directo, con oraciones completas.`

func summarizerUserPrompt(content, query string, maxChars int) string {
	return fmt.Sprintf(`CONSULTA DE BÚSQUEDA: %s

PERFIL: "%s"

Decide si el perfil coincide con la consulta. %s
El resumen debe tener %d caracteres o menos.`, query, content, strictnessPolicy, maxChars)
}

func keywordSystemPrompt(count int) string {
	return fmt.Sprintf(`Eres un experto en identificar las palabras clave más relevantes de un texto.
Tu tarea es extraer exactamente %d palabras clave de una sola palabra que mejor representen el contenido.
Cada palabra clave debe ser UNA SOLA PALABRA: sin frases ni términos de varias palabras.
Elige palabras específicas, descriptivas y relevantes para los temas principales del contenido, cubriendo aspectos distintos cuando sea posible.
Devuelve solo las palabras clave separadas por comas, sin texto adicional. Generar todo en español.`, count)
}

func keywordUserPrompt(content string, count int) string {
	return fmt.Sprintf(`Contenido: "%s"
Extrae exactamente %d palabras clave de una sola palabra de este contenido, separadas por comas:`, content, count)
}

const rewriteSystemPrompt = `Eres un experto en analizar y estructurar la descripción de los intereses de las personas.
La entrada consiste en una serie de preguntas y respuestas que revelan sus pasiones.
Tu tarea es extraer los temas clave de sus respuestas y generar una descripción coherente que resalte sus intereses y motivaciones. NUNCA DEBES REMOVER O AGREGAR INFORMACIÓN.
MANTENER LUGARES, NOMBRES Y CUALQUIER DETALLE RELEVANTE DE LA PERSONA.
Bajo ninguna circunstancia debes inventar información que no esté presente en la entrada.
Escribe el texto respetando la forma en que la persona lo redactó.
No repitas "esta persona" todo el tiempo, sino utiliza "Tiene", "Es", "Le gusta" o la estructura que mejor se adapte.
La descripción se fragmenta en oraciones separadas por punto para generar embeddings, por lo que cada oración debe describir un aspecto diferente.`

func rewriteUserPrompt(content string) string {
	return fmt.Sprintf(`Estas son las respuestas de la persona al formulario: "%s".
Descripción de la persona:`, content)
}
