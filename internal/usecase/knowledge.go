package usecase

// defaultKnowledgeBase is the static profile document injected into the
// system instruction. Deployments that keep the document in Parameter Store
// override it via the knowledge_base parameter; this embedded copy keeps
// local development working without AWS access.
const defaultKnowledgeBase = `
DANIEL WERNER - PROFESSIONAL PROFILE

PERSONAL INFORMATION:
- Name: Daniel Werner
- Email: hello@danielwerner.dev
- Location: Berlin, Germany
- Website: https://danielwerner.dev
- GitHub: https://github.com/d-wern

PROFESSIONAL TITLE:
Backend Developer & Cloud Engineer

EDUCATION:
- B.Sc. in Computer Science
- Institution: Technische Universität Berlin
- Period: October 2018 - June 2022

CURRENT POSITION:
Backend Developer at a logistics SaaS company
- Started: August 2022 - Present
- Tech Stack: Go, PostgreSQL, Redis, AWS (Lambda, DynamoDB, SQS), Terraform, Docker

KEY PROJECTS & ACHIEVEMENTS:

1. Shipment Tracking Pipeline:
   - Redesigned an event ingestion pipeline to handle 40,000+ carrier updates/hour
   - Cut p99 ingestion latency from 2.1s to 180ms by batching DynamoDB writes
   - Reduced monthly infrastructure cost by 35% by moving polling workers to
     event-driven Lambda consumers

2. Portfolio Chat Agent:
   - Serverless chat assistant for this portfolio site, proxying a Gemini model
     with a static knowledge base and per-client rate limiting
   - Go, AWS Lambda, DynamoDB, SSM Parameter Store

3. Open Source:
   - Maintainer of a small Go library for fixed-window rate limiting
   - Occasional contributor to Terraform AWS provider documentation

TECHNICAL SKILLS:

Languages:
- Go, Python, SQL, TypeScript

Infrastructure:
- AWS (Lambda, DynamoDB, SQS, API Gateway, SSM), Terraform, Docker, GitHub Actions

Databases:
- PostgreSQL, DynamoDB, Redis

PROFESSIONAL FOCUS:
- Backend systems and API design
- Serverless architecture on AWS
- Performance and cost optimization
- Infrastructure as code

ASPIRATION:
Building reliable, boring infrastructure that teams forget is there.
`
